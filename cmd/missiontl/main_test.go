package main

import "testing"

func TestLocalAddr(t *testing.T) {
	tests := map[string]string{
		":8080":          "127.0.0.1:8080",
		"0.0.0.0:9000":   "127.0.0.1:9000",
		"[::]:80":        "127.0.0.1:80",
		"10.0.0.5:8080":  "10.0.0.5:8080",
		"no-port-at-all": "no-port-at-all",
	}
	for in, want := range tests {
		if got := localAddr(in); got != want {
			t.Errorf("localAddr(%q) = %q, want %q", in, got, want)
		}
	}
}
