// Package service 装配全部业务服务
package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/clinforge/cdisc-assistant/internal/config"
	"github.com/clinforge/cdisc-assistant/internal/service/chat"
	"github.com/clinforge/cdisc-assistant/internal/service/completion"
	"github.com/clinforge/cdisc-assistant/internal/service/edcmeta"
	"github.com/clinforge/cdisc-assistant/internal/service/prompt"
	"github.com/clinforge/cdisc-assistant/internal/service/session"
	"github.com/clinforge/cdisc-assistant/internal/service/upload"
	"github.com/clinforge/cdisc-assistant/internal/terminology"
	"github.com/cloudwego/eino-ext/components/model/openai"
	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	Chat     *chat.Service
	Sessions *session.Manager
	Registry *upload.Registry
	Terms    *terminology.Store

	Config      *config.Config
	WelcomeHTML string
}

// NewServices 创建所有服务
// 术语表加载失败直接返回错误，调用方应终止启动
func NewServices(cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	terms, err := terminology.Load(cfg.Terminology.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load terminology: %w", err)
	}
	log.Printf("Loaded terminology with %d domains", len(terms.Codes()))

	sessionMgr := session.NewManager(redisClient)

	storage, err := upload.NewLocalStorage(cfg.Upload.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to init upload storage: %w", err)
	}
	registry := upload.NewRegistry(sessionMgr, storage, cfg.Upload.MaxSize)

	assembler := prompt.NewAssembler(terms, cfg.Session.MaxTranscript)
	classifier := prompt.NewClassifier(terms.CodeIndicators(), terms.ExplanationIndicators())

	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	completer := completion.NewClient(chatModel, time.Duration(cfg.AI.Timeout)*time.Second)

	analyzer, err := edcmeta.NewAnalyzer()
	if err != nil {
		log.Printf("Warning: failed to init edc metadata analyzer: %v", err)
		analyzer = nil
	}

	chatSvc := chat.NewService(sessionMgr, registry, assembler, classifier, completer, analyzer)

	return &Services{
		Chat:        chatSvc,
		Sessions:    sessionMgr,
		Registry:    registry,
		Terms:       terms,
		Config:      cfg,
		WelcomeHTML: loadWelcomeHTML(cfg.Welcome.TemplatePath),
	}, nil
}

// newChatModel 创建 ChatModel
func newChatModel(ctx context.Context, cfg *config.Config) (ecomodel.ChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.Alibaba.AccessKeySecret
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		modelName = aiCfg.Alibaba.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	temperature := float32(0.7)

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
	})
}

// loadWelcomeHTML 加载欢迎页模板，缺失时使用内置版本
func loadWelcomeHTML(path string) string {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
		log.Printf("Warning: welcome template not found at %s, using built-in message", path)
	}
	return defaultWelcomeHTML
}

const defaultWelcomeHTML = `<div class="welcome-message">
  <h3>Welcome to the CDISC Standards Assistant</h3>
  <p>I can help you with:</p>
  <ul>
    <li>Converting source data into SDTM/ADaM standards</li>
    <li>Creating dbt models and SQL transformations for clinical data</li>
    <li>Implementing RECIST criteria and oncology-specific analyses</li>
    <li>Designing ADaM datasets for efficacy and safety analysis</li>
  </ul>
  <p>Try asking:</p>
  <div class="example-queries">
    <div class="example-query" id="ex-1">"Tell me about the DM domain structure and purpose"</div>
    <div class="example-query" id="ex-2">"Explain the key variables in the ADSL domain"</div>
    <div class="example-query" id="ex-3">"Generate code to map lab data to SDTM LB domain with explanation"</div>
  </div>
  <p class="prompt-tip">For best results, ask for explanations about domains before requesting code.</p>
</div>`
