package region

import "testing"

func TestCNScriptTagRegexp(t *testing.T) {
	html := `<html><head><script defer type="module" crossorigin src="/assets/index-abc123.js"></script></head></html>`
	m := cnScriptTagRe.FindStringSubmatch(html)
	if m == nil {
		t.Fatal("cnScriptTagRe did not match a well-formed entrypoint script tag")
	}
	if m[1] != "/assets/index-abc123.js" {
		t.Errorf("cnScriptTagRe captured %q, want /assets/index-abc123.js", m[1])
	}
}

func TestCNApkURLRegexp(t *testing.T) {
	body := `window.__APK__="https://cdn.example.com/pkg/BlueArchive_1.2.3.apk";`
	m := cnApkURLRe.FindString(body)
	if m != "https://cdn.example.com/pkg/BlueArchive_1.2.3.apk" {
		t.Errorf("cnApkURLRe matched %q", m)
	}
}

func TestVersionPattern(t *testing.T) {
	if m := versionPattern.FindString("build 12.34.567 is live"); m != "12.34.567" {
		t.Errorf("versionPattern matched %q, want 12.34.567", m)
	}
}
