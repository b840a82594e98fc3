package notify

import "testing"

func TestNew_DisabledWithoutToken(t *testing.T) {
	if n := New("", "#ops"); n != nil {
		t.Error("expected nil Notifier without a token")
	}
	if n := New("xoxb-token", ""); n != nil {
		t.Error("expected nil Notifier without a channel")
	}
	if n := New("xoxb-token", "#ops"); n == nil {
		t.Error("expected Notifier when fully configured")
	}
}

func TestNilNotifier_MethodsAreSafe(t *testing.T) {
	var n *Notifier
	n.AutomationCompleted("b-1", 2, 1)
	n.AutomationFailed("b-1", nil)
	n.QuoteReceived("b-1", "Stevens Creek Mazda", 33800)
	n.QuoteReceived("b-1", "Stevens Creek Mazda", 0)
	n.RoundAdvanced("b-1", "counter", 3)
}
