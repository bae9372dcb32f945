// Package engine talks to the external workflow engine that diagrams are
// deployed to and started on.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DeployPath = "/api/deployment/deploy-with-resources"
	StartPath  = "/api/workflow/start"

	DefaultBaseURL = "http://localhost:8080"
)

var (
	ErrRequestFailed    = errors.New("engine request failed")
	ErrUnexpectedStatus = errors.New("engine returned non-2xx status")
	ErrMissingKey       = errors.New("process definition key is required")
)

// Result is what the engine answered. Bodies are passed through untouched.
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// StartRequest identifies the process instance to start.
type StartRequest struct {
	ProcessDefinitionKey string
	BusinessKey          string
	Variables            map[string]interface{}
}

// Client is a thin resty wrapper. Requests are never retried.
type Client struct {
	client *resty.Client
	log    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Requests are unbounded unless d > 0.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.SetTimeout(d)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a client for the engine at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetRetryCount(0),
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deploy registers a BPMN document under processName.
func (c *Client) Deploy(ctx context.Context, processName, bpmnXML string) (*Result, error) {
	c.log.Info("deploying process", zap.String("process", processName), zap.Int("bytes", len(bpmnXML)))
	resp, err := c.client.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"bpmnXml":     bpmnXML,
			"processName": processName,
		}).
		Post(DeployPath)
	return c.result("deploy", resp, err)
}

// Start launches a process instance.
func (c *Client) Start(ctx context.Context, req StartRequest) (*Result, error) {
	if req.ProcessDefinitionKey == "" {
		return nil, ErrMissingKey
	}
	body := req.Variables
	if body == nil {
		body = map[string]interface{}{}
	}
	c.log.Info("starting process",
		zap.String("processDefinitionKey", req.ProcessDefinitionKey),
		zap.String("businessKey", req.BusinessKey))
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"processDefinitionKey": req.ProcessDefinitionKey,
			"businessKey":          req.BusinessKey,
		}).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(StartPath)
	return c.result("start", resp, err)
}

func (c *Client) result(op string, resp *resty.Response, err error) (*Result, error) {
	if err != nil {
		c.log.Error(op+" failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrRequestFailed, op, err)
	}
	res := &Result{StatusCode: resp.StatusCode(), Body: resp.String()}
	if !resp.IsSuccess() {
		c.log.Warn(op+" rejected", zap.Int("status", res.StatusCode), zap.String("body", res.Body))
		return res, fmt.Errorf("%w: %s: %d", ErrUnexpectedStatus, op, res.StatusCode)
	}
	c.log.Info(op+" succeeded", zap.Int("status", res.StatusCode))
	return res, nil
}
