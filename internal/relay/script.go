package relay

import (
	"fmt"
	"strings"
)

// MarkerID is the identifier of the script element the injector inserts into
// the embedded document. Its presence means the relay is already in place.
const MarkerID = "cyroid-clipboard-bridge"

// ClipboardSelectors is the prioritized list of selectors the relay script
// tries when locating the embedded client's clipboard input control. Ordered
// from most to least specific; covers Guacamole- and noVNC-style clients.
var ClipboardSelectors = []string{
	"#clipboard-input",
	"textarea.clipboard-input",
	".clipboard-editor textarea",
	"#noVNC_clipboard_text",
	"textarea[data-clipboard]",
	".clipboard textarea",
}

// Script returns the relay payload injected into the embedded remote-desktop
// client. The payload creates its protocol handler exactly once per document
// (repeated injection attempts are no-ops) and announces readiness to the
// hosting page a single time.
func Script() string {
	quoted := make([]string, len(ClipboardSelectors))
	for i, s := range ClipboardSelectors {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf(relayScript, strings.Join(quoted, ", "))
}

// relayScript relays clipboard text pushed by the hosting page into the
// embedded client's clipboard input control and reports the outcome. The
// handler object owns the once-per-document state: creating it is the
// idempotency guard for both the message listener and the ready announcement.
const relayScript = `(function () {
  if (window.__cyroidClipboardBridge) { return; }
  var bridge = {
    selectors: [%s],
    findControl: function () {
      for (var i = 0; i < this.selectors.length; i++) {
        var el = document.querySelector(this.selectors[i]);
        if (el) { return el; }
      }
      return null;
    }
  };
  window.__cyroidClipboardBridge = bridge;
  window.addEventListener('message', function (event) {
    var data = event.data || {};
    if (data.action !== 'clipboard' || typeof data.text !== 'string') { return; }
    if (data.text === '') { return; }
    var ok = false;
    var control = bridge.findControl();
    if (control) {
      control.value = data.text;
      control.dispatchEvent(new Event('input', { bubbles: true }));
      control.dispatchEvent(new Event('change', { bubbles: true }));
      ok = true;
    }
    window.parent.postMessage({ type: 'clipboard-ack', success: ok }, '*');
  });
  window.parent.postMessage({ type: 'clipboard-bridge-ready' }, '*');
})();
`
