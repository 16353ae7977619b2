package mirror

import (
	"testing"

	"soultray/internal/cards"
	logx "soultray/pkg/logx"
)

func TestFormatCard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		card cards.Card
		want string
	}{
		{
			name: "title only",
			card: cards.Card{Variant: cards.VariantInfo, Title: "Assistant ready"},
			want: "[INFO] Assistant ready",
		},
		{
			name: "with description",
			card: cards.Card{Variant: cards.VariantError, Title: "Backup failed", Description: "disk full"},
			want: "[ERROR] Backup failed\ndisk full",
		},
		{
			name: "result summary appended",
			card: cards.Card{
				Variant: cards.VariantResult,
				Title:   "Cleanup done",
				Result:  &cards.ResultInfo{OutcomeStatus: cards.OutcomeSuccess, Summary: "removed 120 files"},
			},
			want: "[RESULT] Cleanup done\nremoved 120 files",
		},
		{
			name: "summary equal to description not duplicated",
			card: cards.Card{
				Variant:     cards.VariantResult,
				Title:       "Cleanup done",
				Description: "removed 120 files",
				Result:      &cards.ResultInfo{Summary: "removed 120 files"},
			},
			want: "[RESULT] Cleanup done\nremoved 120 files",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatCard(tt.card); got != tt.want {
				t.Errorf("FormatCard() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVariantFilterDefaultsToError(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, nil, nil, nil, logx.Nop())
	if !s.wantsVariant(cards.VariantError) {
		t.Error("default filter should forward error cards")
	}
	if s.wantsVariant(cards.VariantInfo) {
		t.Error("default filter should not forward info cards")
	}
}

func TestVariantFilterExplicit(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Variants: []string{"error", " confirmation "}}, nil, nil, nil, logx.Nop())
	if !s.wantsVariant(cards.VariantConfirmation) {
		t.Error("configured variant not forwarded")
	}
	if s.wantsVariant(cards.VariantInfo) {
		t.Error("unconfigured variant forwarded")
	}
}
