// Package llm 定义代码解释器与生成式 AI 服务交互的最小抽象
//
// 解释器只需要"发送一段提示词，拿回一段 Markdown 文本"，因此本包只保留：
//   - [Provider]: 同步 / 流式两种调用契约
//   - [Message]: 纯文本对话消息
//   - [Event]: 流式事件（文本增量、完成、错误）
//   - [Config]: Provider 创建配置与默认值
//   - 错误类型：配置、请求、HTTP、API、响应解析、流式
//
// # Provider 类型
//
// [ProviderType] 枚举支持的后端：
//   - ProviderTypeGemini: Gemini REST API（resty 实现，见 pkg/llm/gemini）
//   - ProviderTypeGenAI: Google 官方 SDK（见 pkg/llm/genai）
//   - ProviderTypeLocalMock: 本地 Mock（见 pkg/llm/localmock，测试用）
//
// 工厂函数位于 pkg/llm/provider。
//
// # 包文件组织
//
//   - types.go: Provider 接口、Options、Response
//   - message.go: Message、Role
//   - event.go: Event、EventType
//   - provider_type.go: ProviderType 枚举
//   - config.go: Config 与默认值
//   - errors.go: 错误类型
package llm
