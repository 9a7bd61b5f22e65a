// Package gemini 基于 resty 直连 Gemini REST API 的 Provider 实现
//
// 同步调用 models/{model}:generateContent，流式调用
// models/{model}:streamGenerateContent?alt=sse。API Key 通过 key 查询参数传递。
//
// # 基础使用
//
//	client, err := gemini.New(&gemini.Config{
//	    APIKey: "your-api-key",
//	    Model:  gemini.ModelGemini20Flash,
//	})
//
//	resp, err := client.Complete(ctx, []llm.Message{llm.UserMessage(prompt)}, nil)
//	fmt.Println(resp.Text())
//
// # Thinking 模式
//
// Gemini 2.5 系列支持 thinking，thought part 以 [llm.EventTypeThinking] 事件输出，
// 不计入最终文本（配置文件中对应 provider.thinking）：
//
//	client, err := gemini.New(&gemini.Config{
//	    APIKey:         key,
//	    Model:          gemini.ModelGemini25Flash,
//	    EnableThinking: true,
//	})
package gemini
