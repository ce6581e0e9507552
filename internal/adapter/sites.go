package adapter

// NewChatGPT creates the adapter for chatgpt.com.
func NewChatGPT() Adapter {
	return NewDOMAdapter(SiteSpec{
		InputSelector:    "#prompt-textarea",
		SubmitSelector:   `button[data-testid="send-button"]`,
		ResponseSelector: `div[data-message-author-role="assistant"]`,
		BusySelector:     `button[data-testid="stop-button"]`,
	})
}

// NewClaude creates the adapter for claude.ai.
func NewClaude() Adapter {
	return NewDOMAdapter(SiteSpec{
		InputSelector:    `div[contenteditable="true"].ProseMirror`,
		SubmitSelector:   `button[aria-label="Send message"]`,
		ResponseSelector: "div.font-claude-message",
		BusySelector:     `button[aria-label="Stop response"]`,
	})
}

// NewGemini creates the adapter for gemini.google.com.
func NewGemini() Adapter {
	return NewDOMAdapter(SiteSpec{
		InputSelector:    `div.ql-editor[contenteditable="true"]`,
		SubmitSelector:   `button[aria-label="Send message"]`,
		ResponseSelector: "message-content",
		BusySelector:     `button[aria-label="Stop response"]`,
	})
}

// NewGrok creates the adapter for grok.com.
func NewGrok() Adapter {
	return NewDOMAdapter(SiteSpec{
		InputSelector:    `textarea[aria-label="Ask Grok anything"]`,
		SubmitSelector:   `button[type="submit"][aria-label="Submit"]`,
		ResponseSelector: "div.message-bubble",
		BusySelector:     `button[aria-label="Stop generating"]`,
	})
}
