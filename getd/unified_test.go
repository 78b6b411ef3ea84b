package getd

import (
	"strings"
	"testing"
)

func TestGuardTextRecoversPanic(t *testing.T) {
	out := guardText("000001", func() string {
		panic("boom")
	})
	if !strings.HasPrefix(out, "❌") {
		t.Errorf("panic must surface as failure text: %q", out)
	}
}

func TestGuardTextEmptyResult(t *testing.T) {
	out := guardText("000001", func() string { return "  " })
	if !strings.HasPrefix(out, "❌ 未能獲取000001的數據") {
		t.Errorf("empty result must surface as failure text: %q", out)
	}
}

func TestGuardTextPassthrough(t *testing.T) {
	out := guardText("000001", func() string { return "📊 報告" })
	if out != "📊 報告" {
		t.Errorf("success text altered: %q", out)
	}
}
