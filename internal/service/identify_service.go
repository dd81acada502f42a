package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAICareModel   = "gpt-4o-mini"
	defaultDeepSeekCareModel = "deepseek-chat"
	defaultCareMaxTokens     = 320
	defaultCareTemperature   = 0.3

	// 识别置信度低于该阈值时按"未识别"处理，而不是报错
	recognitionConfidenceThreshold = 0.3

	// 识别或生成失败时的兜底文案与默认养护参数
	fallbackCareDescription      = "We couldn't identify this plant, but it still deserves your care. Water it when the soil feels dry."
	fallbackWateringFrequency    = 7
	fallbackLightExposure        = "Bright, indirect light"
	defaultRecognitionBaseURL    = "https://my-api.plantnet.org/v2"
	defaultCareSystemPromptIntro = "You are a botanist writing care sheets for a plant tracking app."
)

// IdentifyResult 汇总一次识别请求的结果。
// Recognized 为 false 表示置信度不足或上游失败，此时字段为兜底值。
type IdentifyResult struct {
	Recognized            bool    `json:"recognized"`
	Name                  string  `json:"name"`
	LatinName             string  `json:"latin_name"`
	Score                 float64 `json:"score"`
	Description           string  `json:"description"`
	WateringFrequencyDays int     `json:"watering_frequency_days"`
	LightExposure         string  `json:"light_exposure"`
}

// IdentifyService 负责图片识别与养护文案生成
// 识别调用外部图像识别服务，文案生成复用 aiChatClient
// 上游失败一律降级为兜底内容，不向调用方抛错
type IdentifyService struct {
	settings           *SystemSettingService
	http               httpDoer
	recognitionBaseURL string
	care               *aiChatClient
}

// NewIdentifyService 构造 IdentifyService。
func NewIdentifyService(settings *SystemSettingService) *IdentifyService {
	return &IdentifyService{
		settings:           settings,
		http:               &http.Client{Timeout: 60 * time.Second},
		recognitionBaseURL: defaultRecognitionBaseURL,
		care:               newAIChatClient(settings, defaultOpenAICareModel, defaultDeepSeekCareModel),
	}
}

// SetHTTPClient 覆盖识别服务的 HTTP 客户端，主要用于测试。
func (s *IdentifyService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 60 * time.Second}
		return
	}
	s.http = client
}

// SetRecognitionBaseURL 覆盖识别服务的基础地址，便于测试或自定义代理。
func (s *IdentifyService) SetRecognitionBaseURL(base string) {
	s.recognitionBaseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

// SetCareHTTPClient 覆盖文案生成所用的 HTTP 客户端。
func (s *IdentifyService) SetCareHTTPClient(client httpDoer) {
	s.care.SetHTTPClient(client)
}

// SetCareBaseURL 覆盖文案生成平台的基础地址。
func (s *IdentifyService) SetCareBaseURL(base string) {
	s.care.SetOpenAIBaseURL(base)
	s.care.SetDeepSeekBaseURL(base)
}

// recognitionResponse 对应识别服务的响应结构。
type recognitionResponse struct {
	Results []struct {
		Score   float64 `json:"score"`
		Species struct {
			ScientificName string   `json:"scientificNameWithoutAuthor"`
			CommonNames    []string `json:"commonNames"`
		} `json:"species"`
	} `json:"results"`
}

// careSheet 是模型输出的 JSON 结构。
type careSheet struct {
	Description           string `json:"description"`
	WateringFrequencyDays int    `json:"watering_frequency_days"`
	LightExposure         string `json:"light_exposure"`
}

// Identify 上传图片到识别服务，并为识别出的物种生成养护信息。
// 置信度不足返回 Recognized=false 的兜底结果；识别服务不可用才返回错误。
func (s *IdentifyService) Identify(ctx context.Context, image []byte, filename string) (IdentifyResult, error) {
	fallback := IdentifyResult{
		Recognized:            false,
		Description:           fallbackCareDescription,
		WateringFrequencyDays: fallbackWateringFrequency,
		LightExposure:         fallbackLightExposure,
	}

	if len(image) == 0 {
		return fallback, fmt.Errorf("identify: empty image")
	}

	settings, err := s.settings.GetSettings()
	if err != nil {
		return fallback, fmt.Errorf("读取系统设置失败: %w", err)
	}
	if strings.TrimSpace(settings.RecognitionAPIKey) == "" {
		return fallback, ErrAIAPIKeyMissing
	}

	name, latin, score, err := s.recognize(ctx, settings.RecognitionAPIKey, image, filename)
	if err != nil {
		return fallback, err
	}

	if score < recognitionConfidenceThreshold {
		// 低置信度按未识别处理
		return fallback, nil
	}

	result := IdentifyResult{
		Recognized:            true,
		Name:                  name,
		LatinName:             latin,
		Score:                 score,
		Description:           fallbackCareDescription,
		WateringFrequencyDays: fallbackWateringFrequency,
		LightExposure:         fallbackLightExposure,
	}

	// 文案生成失败只降级，不影响识别结果
	if sheet, err := s.generateCareSheet(ctx, settings, name, latin); err == nil {
		if strings.TrimSpace(sheet.Description) != "" {
			result.Description = strings.TrimSpace(sheet.Description)
		}
		if sheet.WateringFrequencyDays > 0 {
			result.WateringFrequencyDays = sheet.WateringFrequencyDays
		}
		if strings.TrimSpace(sheet.LightExposure) != "" {
			result.LightExposure = strings.TrimSpace(sheet.LightExposure)
		}
	} else {
		logAIExchange("CARE", "fallback", err.Error())
	}

	return result, nil
}

func (s *IdentifyService) recognize(ctx context.Context, apiKey string, image []byte, filename string) (name, latin string, score float64, err error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("images", strings.TrimSpace(filename))
	if err != nil {
		return "", "", 0, fmt.Errorf("构造识别请求失败: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", "", 0, fmt.Errorf("构造识别请求失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", "", 0, fmt.Errorf("构造识别请求失败: %w", err)
	}

	base := s.recognitionBaseURL
	if strings.TrimSpace(base) == "" {
		base = defaultRecognitionBaseURL
	}
	endpoint := strings.TrimRight(base, "/") + "/identify/all?api-key=" + apiKey

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", "", 0, fmt.Errorf("创建识别请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "gardenlog-identify/1.0")

	client := s.http
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", "", 0, fmt.Errorf("请求识别接口失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", 0, fmt.Errorf("读取识别响应失败: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", "", 0, fmt.Errorf("识别接口返回错误：%s", resp.Status)
	}

	var parsed recognitionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", "", 0, fmt.Errorf("解析识别响应失败: %w", err)
	}

	if len(parsed.Results) == 0 {
		return "", "", 0, nil
	}

	best := parsed.Results[0]
	latin = strings.TrimSpace(best.Species.ScientificName)
	name = latin
	if len(best.Species.CommonNames) > 0 && strings.TrimSpace(best.Species.CommonNames[0]) != "" {
		name = strings.TrimSpace(best.Species.CommonNames[0])
	}
	return name, latin, best.Score, nil
}

func (s *IdentifyService) generateCareSheet(ctx context.Context, settings SystemSettings, name, latin string) (careSheet, error) {
	prompt := buildCarePrompt(name, latin)
	logAIExchange("CARE", "prompt", prompt)

	result, err := s.care.callWithSettings(ctx, settings, aiChatRequest{
		SystemPrompt: defaultCareSystemPromptIntro + " Reply with a single JSON object with keys description (string, 2-3 sentences), watering_frequency_days (integer) and light_exposure (string). No markdown, no extra text.",
		UserPrompt:   prompt,
		MaxTokens:    defaultCareMaxTokens,
		Temperature:  defaultCareTemperature,
	})
	if err != nil {
		return careSheet{}, err
	}

	logAIExchange("CARE", "response", result.Content)

	var sheet careSheet
	if err := json.Unmarshal([]byte(extractJSONObject(result.Content)), &sheet); err != nil {
		return careSheet{}, fmt.Errorf("解析养护文案失败: %w", err)
	}
	return sheet, nil
}

func buildCarePrompt(name, latin string) string {
	var builder strings.Builder
	builder.WriteString("Species: ")
	builder.WriteString(strings.TrimSpace(name))
	if trimmed := strings.TrimSpace(latin); trimmed != "" && trimmed != strings.TrimSpace(name) {
		builder.WriteString(" (")
		builder.WriteString(trimmed)
		builder.WriteString(")")
	}
	return builder.String()
}

// extractJSONObject 从模型输出中截取第一个 JSON 对象，容忍包裹的代码块标记。
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return content
	}
	return content[start : end+1]
}
