package config

import "gopkg.in/yaml.v3"

// Masked 返回密钥打码后的副本。
func (c Config) Masked() Config {
	out := c
	out.Trading.APIKey = maskSecret(c.Trading.APIKey)
	out.Trading.SecretKey = maskSecret(c.Trading.SecretKey)
	out.AI.APIKey = maskSecret(c.AI.APIKey)
	out.AI.TokenMetricsKey = maskSecret(c.AI.TokenMetricsKey)
	out.Notify.Telegram.BotToken = maskSecret(c.Notify.Telegram.BotToken)
	out.Storage.MCPRestURL = maskSecret(c.Storage.MCPRestURL)
	if len(c.AI.Headers) > 0 {
		out.AI.Headers = make(map[string]string, len(c.AI.Headers))
		for k, v := range c.AI.Headers {
			out.AI.Headers[k] = maskSecret(v)
		}
	}
	return out
}

// DumpYAML 输出打码后的有效配置。
func (c Config) DumpYAML() ([]byte, error) {
	return yaml.Marshal(c.Masked())
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}
