package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// Client — 维保系统API客户端
// 送修(REPAIR)处置通过该客户端在外部维保系统创建维修工单
// =============================================================================

// Client 维保系统客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client // 每次调用另受ctx超时约束
}

// NewClient 创建维保系统客户端实例
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseResponse 维保系统统一响应结构
type BaseResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CreateTicketRequest 创建维修工单请求
type CreateTicketRequest struct {
	AssetID       string `json:"asset_id"`
	ComponentName string `json:"component_name"`
	Description   string `json:"description"`
	Condition     string `json:"condition"`
	ReferenceID   string `json:"reference_id"` // 来源拆解部件项ID
	RequestedBy   string `json:"requested_by"`
}

// Ticket 维修工单
type Ticket struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

// CreateTicket 创建维修工单
// 调用方通过ctx控制超时，超时或网络错误按失败返回
func (c *Client) CreateTicket(ctx context.Context, req *CreateTicketRequest) (*Ticket, error) {
	var result struct {
		BaseResponse
		Data Ticket `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/tickets", req, &result); err != nil {
		return nil, err
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("维保系统错误[%d]: %s", result.Code, result.Message)
	}
	return &result.Data, nil
}

// doRequest 执行维保系统API请求
// body会被JSON序列化，result用于反序列化响应
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求维保系统失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("维保系统HTTP错误[%d]: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("解析响应失败: %w", err)
		}
	}
	return nil
}
