package consts

// 模型提供方
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
)

// 对话链节点
const (
	NodeLoadMessages = "load_messages"
	NodeChatModel    = "chat_model"
)

// Providers lists every supported provider, preferred first.
var Providers = []string{ProviderGemini, ProviderOpenAI, ProviderDeepSeek}
