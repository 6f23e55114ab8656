package web

import (
	"net/http/httptest"
	"testing"
)

func TestResolveActor_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		user    *userRef
		want    string
	}{
		{
			name:    "header name wins over everything",
			headers: map[string]string{"X-User-Name": "Dana Wu", "X-User-Email": "dana@example.com"},
			user:    &userRef{Name: "Body Person"},
			want:    "Dana Wu",
		},
		{
			name:    "email when name missing",
			headers: map[string]string{"X-User-Email": "dana@example.com"},
			want:    "dana@example.com",
		},
		{
			name:    "principal name third",
			headers: map[string]string{"X-Ms-Client-Principal-Name": "dana@corp"},
			want:    "dana@corp",
		},
		{
			name: "body name before body email",
			user: &userRef{Name: "Body Person", Email: "body@example.com"},
			want: "Body Person",
		},
		{
			name: "body email as last resort",
			user: &userRef{Email: "body@example.com"},
			want: "body@example.com",
		},
		{
			name: "nothing resolves to System",
			want: "System",
		},
		{
			name:    "undefined header is skipped",
			headers: map[string]string{"X-User-Name": "undefined"},
			user:    &userRef{Name: "Body Person"},
			want:    "Body Person",
		},
		{
			name:    "undefined undefined is skipped case-insensitively",
			headers: map[string]string{"X-User-Name": "Undefined UNDEFINED"},
			want:    "System",
		},
		{
			name:    "whitespace-only header is skipped",
			headers: map[string]string{"X-User-Name": "   "},
			want:    "System",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/pos/x/mark-paid", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := resolveActor(r, tt.user); got != tt.want {
				t.Errorf("resolveActor() = %q, want %q", got, tt.want)
			}
		})
	}
}
