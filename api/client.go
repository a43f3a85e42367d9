// Package api provides a client for accessing the feecast service through
// its JSON-RPC API.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	jsonrpc "github.com/gorilla/rpc/json"
)

type Config struct {
	Host    string
	Port    string
	Timeout int
}

type Client struct {
	httpclient *http.Client
	cfg        Config
}

// EstimateFeeResult mirrors the daemon's estimatefee reply.
type EstimateFeeResult struct {
	Forecaster   string   `json:"forecaster"`
	Height       int64    `json:"height"`
	LowPriority  int64    `json:"lowpriority"`  // sat/kvB
	HighPriority int64    `json:"highpriority"` // sat/kvB
	Errors       []string `json:"errors"`
}

// ForecastResult mirrors one forecaster's verdict.
type ForecastResult struct {
	Forecaster   string `json:"forecaster"`
	Height       int64  `json:"height"`
	LowPriority  int64  `json:"lowpriority"`
	HighPriority int64  `json:"highpriority"`
	Err          string `json:"error"`
}

// BlockPctEntry mirrors one entry of the block percentile log.
type BlockPctEntry struct {
	Height int64 `json:"height"`
	Time   int64 `json:"time"`
	P5     int64 `json:"p5"`
	P25    int64 `json:"p25"`
	P50    int64 `json:"p50"`
	P75    int64 `json:"p75"`
}

func NewClient(cfg Config) *Client {
	httpclient := &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	return &Client{httpclient: httpclient, cfg: cfg}
}

func (c *Client) Stop() error {
	_, err := c.doRPC("Service.Stop", nil)
	return err
}

func (c *Client) Status() (map[string]string, error) {
	r, err := c.doRPC("Service.Status", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]string
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) EstimateFee(n int) (*EstimateFeeResult, error) {
	r, err := c.doRPC("Service.EstimateFee", n)
	if err != nil {
		return nil, err
	}

	result := new(EstimateFeeResult)
	if err := json.Unmarshal(r, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Forecasts(n int) ([]ForecastResult, error) {
	r, err := c.doRPC("Service.Forecasts", n)
	if err != nil {
		return nil, err
	}

	var result []ForecastResult
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) MaxTarget() (int, error) {
	r, err := c.doRPC("Service.MaxTarget", nil)
	if err != nil {
		return 0, err
	}

	var result int
	if err := json.Unmarshal(r, &result); err != nil {
		return 0, err
	}
	return result, nil
}

func (c *Client) BlockPcts(n int) ([]BlockPctEntry, error) {
	r, err := c.doRPC("Service.BlockPcts", n)
	if err != nil {
		return nil, err
	}

	var result []BlockPctEntry
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) SetDebug(d bool) (bool, error) {
	r, err := c.doRPC("Service.SetDebug", d)
	if err != nil {
		return false, err
	}

	var result bool
	if err := json.Unmarshal(r, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (c *Client) Config() (map[string]interface{}, error) {
	r, err := c.doRPC("Service.Config", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Metrics() (map[string]interface{}, error) {
	r, err := c.doRPC("Service.Metrics", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(r, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doRPC(method string, args interface{}) (json.RawMessage, error) {
	b, err := jsonrpc.EncodeClientRequest(method, args)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc.EncodeClientRequest: %v", err)
	}

	url := "http://" + net.JoinHostPort(c.cfg.Host, c.cfg.Port)
	req, err := http.NewRequest("POST", url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var m json.RawMessage
	if err := jsonrpc.DecodeClientResponse(resp.Body, &m); err != nil {
		return nil, fmt.Errorf("jsonrpc.DecodeClientResponse: %v", err)
	}
	return m, nil
}
