package adapter

import (
	"context"
	"encoding/json"
	"fmt"
)

// SiteSpec describes one chat site's DOM surface.
type SiteSpec struct {
	// InputSelector locates the prompt input (textarea or contenteditable).
	InputSelector string
	// SubmitSelector locates the send button.
	SubmitSelector string
	// ResponseSelector locates assistant message blocks, oldest first.
	ResponseSelector string
	// BusySelector locates an element that exists only while the site is
	// generating (typically the stop button).
	BusySelector string
}

// domAdapter drives a chat site through generic DOM scripting parameterized
// by a SiteSpec. All four built-in adapters are domAdapters; a site that
// outgrows selector-based automation gets its own Adapter implementation.
type domAdapter struct {
	spec SiteSpec
}

// NewDOMAdapter creates an adapter for the given site spec.
func NewDOMAdapter(spec SiteSpec) Adapter {
	return &domAdapter{spec: spec}
}

var _ Adapter = (*domAdapter)(nil)

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (d *domAdapter) EnsureBindings(ctx context.Context, ch Channel) error {
	// The only page-side state is a readiness marker; everything else is
	// evaluated fresh per call. Re-running is a no-op.
	script := `(() => {
		if (document.readyState !== "complete") return false;
		window.__councilBound = true;
		return true;
	})()`
	ready, err := ch.EvaluateBool(ctx, script)
	if err != nil {
		return err
	}
	if !ready {
		return fmt.Errorf("page still loading")
	}
	return nil
}

func (d *domAdapter) LocateInputSurface(ctx context.Context, ch Channel) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return !!el && !el.disabled;
	})()`, jsString(d.spec.InputSelector))
	return ch.EvaluateBool(ctx, script)
}

func (d *domAdapter) SetText(ctx context.Context, ch Channel, text string) error {
	// Native setter + input event for textareas so React-style controlled
	// inputs pick the value up; execCommand for contenteditable editors.
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.focus();
		const text = %s;
		if (el.tagName === "TEXTAREA" || el.tagName === "INPUT") {
			const proto = el.tagName === "TEXTAREA" ? window.HTMLTextAreaElement.prototype : window.HTMLInputElement.prototype;
			Object.getOwnPropertyDescriptor(proto, "value").set.call(el, text);
			el.dispatchEvent(new Event("input", { bubbles: true }));
		} else {
			el.innerHTML = "";
			document.execCommand("insertText", false, text);
			el.dispatchEvent(new InputEvent("input", { bubbles: true }));
		}
		return true;
	})()`, jsString(d.spec.InputSelector), jsString(text))

	ok, err := ch.EvaluateBool(ctx, script)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("input surface %q not found", d.spec.InputSelector)
	}
	return nil
}

func (d *domAdapter) Submit(ctx context.Context, ch Channel) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const btn = document.querySelector(%s);
		if (btn && !btn.disabled) {
			btn.click();
			return true;
		}
		const el = document.querySelector(%s);
		if (!el) return false;
		el.dispatchEvent(new KeyboardEvent("keydown", { key: "Enter", code: "Enter", keyCode: 13, bubbles: true }));
		return true;
	})()`, jsString(d.spec.SubmitSelector), jsString(d.spec.InputSelector))
	return ch.EvaluateBool(ctx, script)
}

func (d *domAdapter) IsGenerationComplete(ctx context.Context, ch Channel) (bool, error) {
	script := fmt.Sprintf(`(() => {
		if (document.querySelector(%s)) return false;
		const msgs = document.querySelectorAll(%s);
		if (!msgs.length) return false;
		return (msgs[msgs.length - 1].innerText || "").trim().length > 0;
	})()`, jsString(d.spec.BusySelector), jsString(d.spec.ResponseSelector))
	return ch.EvaluateBool(ctx, script)
}

func (d *domAdapter) ReadLatestResponseText(ctx context.Context, ch Channel) (string, error) {
	// The busy check keeps the poll pair atomic: mid-generation reads
	// yield "", never a partial text presented as final.
	script := fmt.Sprintf(`(() => {
		if (document.querySelector(%s)) return "";
		const msgs = document.querySelectorAll(%s);
		if (!msgs.length) return "";
		return msgs[msgs.length - 1].innerText || "";
	})()`, jsString(d.spec.BusySelector), jsString(d.spec.ResponseSelector))
	return ch.EvaluateString(ctx, script)
}
