// Package completion 封装对补全服务的调用
// 直接使用 eino ChatModel，避免冗余封装
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrUpstream 补全服务不可用或返回异常
var ErrUpstream = errors.New("completion service unavailable")

// ErrRateLimited 补全服务限流或配额耗尽
var ErrRateLimited = errors.New("completion rate limited")

// defaultTimeout 单次补全调用的超时上限
const defaultTimeout = 90 * time.Second

// retryBackoff 限流后重试前的等待时间
const retryBackoff = 2 * time.Second

// Client 补全客户端
// 每次调用显式设置超时，限流错误最多重试一次
type Client struct {
	chatModel model.ChatModel
	timeout   time.Duration
}

// NewClient 创建补全客户端，timeout 非正时使用默认超时
func NewClient(chatModel model.ChatModel, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{chatModel: chatModel, timeout: timeout}
}

// Complete 发送提示消息并返回补全文本
// 失败返回包装后的 ErrUpstream 或 ErrRateLimited，调用方据此决定用户可见文案
func (c *Client) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	content, err := c.generate(ctx, messages)
	if err == nil {
		return content, nil
	}

	// 限流时退避一次再试
	if errors.Is(err, ErrRateLimited) {
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
		}
		return c.generate(ctx, messages)
	}

	return "", err
}

func (c *Client) generate(ctx context.Context, messages []*schema.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", classify(err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return content, nil
}

// classify 将底层错误归类为限流或一般上游故障
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate") || strings.Contains(msg, "quota") || strings.Contains(msg, "429") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
