package erp

import (
	"fmt"
	"sync"

	"github.com/kolo/xmlrpc"
	"go.uber.org/zap"

	"mmcore/internal/apperr"
)

// Client talks to one ERP database over the XML-RPC external API.
// The authenticated uid is cached for the lifetime of the client.
type Client struct {
	url      string
	db       string
	username string
	password string
	version  int

	common *xmlrpc.Client
	object *xmlrpc.Client

	mu  sync.Mutex
	uid int64

	logger *zap.Logger
}

// NewClient dials the common and object endpoints of an ERP instance.
// No network traffic happens until the first call.
func NewClient(url, db, username, password string, version int, logger *zap.Logger) (*Client, error) {
	common, err := xmlrpc.NewClient(url+"/xmlrpc/2/common", nil)
	if err != nil {
		return nil, apperr.ExternalService("erp", err)
	}
	object, err := xmlrpc.NewClient(url+"/xmlrpc/2/object", nil)
	if err != nil {
		common.Close()
		return nil, apperr.ExternalService("erp", err)
	}
	return &Client{
		url:      url,
		db:       db,
		username: username,
		password: password,
		version:  version,
		common:   common,
		object:   object,
		logger:   logger.With(zap.String("erp_db", db)),
	}, nil
}

// DB returns the database name this client is bound to.
func (c *Client) DB() string { return c.db }

// Version returns the major ERP version the target database runs.
func (c *Client) Version() int { return c.version }

// Close releases the underlying RPC connections.
func (c *Client) Close() {
	c.common.Close()
	c.object.Close()
}

// Authenticate resolves and caches the user id for the configured
// credentials. The ERP returns boolean false on bad credentials, which
// surfaces here as an authentication error.
func (c *Client) Authenticate() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != 0 {
		return c.uid, nil
	}

	var result interface{}
	err := c.common.Call("authenticate", []interface{}{c.db, c.username, c.password, map[string]interface{}{}}, &result)
	if err != nil {
		return 0, apperr.ExternalService("erp", err)
	}
	switch v := result.(type) {
	case int64:
		c.uid = v
	case int:
		c.uid = int64(v)
	default:
		return 0, apperr.Authentication(fmt.Sprintf("erp authentication failed for db %s", c.db))
	}
	c.logger.Debug("erp authenticated", zap.Int64("uid", c.uid))
	return c.uid, nil
}

// Execute runs execute_kw against a model method.
func (c *Client) Execute(model, method string, args []interface{}, kwargs map[string]interface{}, result interface{}) error {
	uid, err := c.Authenticate()
	if err != nil {
		return err
	}
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}
	params := []interface{}{c.db, uid, c.password, model, method, args, kwargs}
	if err := c.object.Call("execute_kw", params, result); err != nil {
		c.logger.Warn("erp call failed",
			zap.String("model", model),
			zap.String("method", method),
			zap.Error(err))
		return apperr.ExternalService("erp", err)
	}
	return nil
}

// SearchRead searches records matching the domain and reads the given fields.
func (c *Client) SearchRead(model string, domain []interface{}, fields []string, limit int) ([]map[string]interface{}, error) {
	kwargs := map[string]interface{}{"fields": fields}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	var rows []map[string]interface{}
	if err := c.Execute(model, "search_read", []interface{}{domain}, kwargs, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Read reads the given fields of specific record ids. Missing ids yield an
// empty slice, not an error.
func (c *Client) Read(model string, ids []int64, fields []string) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	err := c.Execute(model, "read", []interface{}{ids}, map[string]interface{}{"fields": fields}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CallMethod invokes a workflow method (button action) on specific records.
// Most ERP buttons return true or nothing useful, so the result is discarded.
func (c *Client) CallMethod(model, method string, ids []int64) error {
	var result interface{}
	return c.Execute(model, method, []interface{}{ids}, nil, &result)
}

// Write updates fields on specific records.
func (c *Client) Write(model string, ids []int64, values map[string]interface{}) error {
	var ok bool
	return c.Execute(model, "write", []interface{}{ids, values}, nil, &ok)
}

// Create inserts one record and returns its id.
func (c *Client) Create(model string, values map[string]interface{}) (int64, error) {
	var id int64
	if err := c.Execute(model, "create", []interface{}{values}, nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// TestConnection verifies the endpoint answers and the credentials resolve.
func (c *Client) TestConnection() error {
	var version map[string]interface{}
	if err := c.common.Call("version", nil, &version); err != nil {
		return apperr.ExternalService("erp", err)
	}
	_, err := c.Authenticate()
	return err
}
