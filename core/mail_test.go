package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	to := []mail.Address{{Name: "Jane", Address: "jane@test.cd"}}

	tests := []struct {
		name     string
		msg      EmailMessage
		wantErr  bool
		wantText []string
		wantHTML []string
	}{
		{
			name:     "photo set",
			msg:      EmailMessage{To: to, TemplateName: "photo_changed", TemplateData: map[string]string{"URL": "https://x/y.png"}},
			wantText: []string{"Hi Jane,", "has been updated", "https://x/y.png", "The Classroom team"},
			wantHTML: []string{`<img src="https://x/y.png"`},
		},
		{
			name:     "photo removed",
			msg:      EmailMessage{To: to, TemplateName: "photo_changed", TemplateData: map[string]string{"URL": ""}},
			wantText: []string{"has been removed"},
			wantHTML: []string{"has been removed"},
		},
		{name: "plain body", msg: EmailMessage{To: to, BodyStr: "hello"}, wantText: []string{"hello"}},
		{name: "unknown template", msg: EmailMessage{To: to, TemplateName: "lol"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			err := msg.Render("Classroom")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.wantText {
				assert.Contains(t, msg.TextContent, s)
			}
			for _, s := range tt.wantHTML {
				assert.Contains(t, msg.HTMLContent, s)
			}
		})
	}
}
