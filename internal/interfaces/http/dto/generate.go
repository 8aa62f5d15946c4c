// Package dto 提供 HTTP 层数据传输对象
package dto

// GenerateChapterRequest 章节生成请求。
// Temperature 为空时使用默认值 0.7。
type GenerateChapterRequest struct {
	Prompt          string   `json:"prompt" binding:"required,min=1"`
	Genre           string   `json:"genre"`
	Style           string   `json:"style"`
	Temperature     *float64 `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	PreviousContext string   `json:"previous_context"`
}

// DefaultTemperature 生成调用的默认采样温度
const DefaultTemperature = 0.7

// ResolveTemperature 解析请求温度
func (r *GenerateChapterRequest) ResolveTemperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}
