package i18n

import "sync"

// Translator retrieves localized remediation hints for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "field" or "type").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "removed_option":
			return "ルートマッチャーを使用してください"
		case "renamed_option":
			return with(data, "replacement", "新しいオプション名に置き換えてください: ")
		case "invalid_type":
			return with(data, "expected", "期待される型: ")
		case "invalid_status":
			return "3xx のステータスコードを指定してください"
		case "duplicate_key":
			return "キーが重複しています"
		case "parse_error":
			return "解析エラー"
		case "truncated":
			return "入力が大きすぎます"
		}
	default: // "en"
		switch code {
		case "removed_option":
			return "use route matchers instead"
		case "renamed_option":
			return with(data, "replacement", "replace with ")
		case "invalid_type":
			return with(data, "expected", "expected ")
		case "invalid_status":
			return "return a 3xx status code alongside the redirect"
		case "duplicate_key":
			return "duplicate key"
		case "parse_error":
			return "parse error"
		case "truncated":
			return "input too large"
		}
	}
	return code
}

func with(data map[string]string, key, prefix string) string {
	if v := data[key]; v != "" {
		return prefix + v
	}
	return prefix
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
