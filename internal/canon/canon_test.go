package canon

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"HTTPS://WWW.TikTok.com/@user/video/123?lang=en#frag": "https://www.tiktok.com/@user/video/123",
		"https://instagram.com/reel/abc/":                      "https://instagram.com/reel/abc",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		url  string
		want Classification
	}{
		{"https://www.tiktok.com/@user/video/12345", ClassificationSingle},
		{"https://www.instagram.com/reel/abc123/", ClassificationCarouselCandidate},
		{"https://www.youtube.com/shorts/xyz", ClassificationSingle},
		{"https://example.com/video", ClassificationUnsupported},
		{"https://www.tiktok.com/@user", ClassificationUnsupported},
	}
	for _, c := range cases {
		if got := Classify(c.url); got != c.want {
			t.Errorf("Classify(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestCarouselIndex(t *testing.T) {
	idx, ok := CarouselIndex("https://www.instagram.com/p/abc/?img_index=2")
	if !ok || idx != 3 {
		t.Errorf("CarouselIndex = (%d, %v), want (3, true)", idx, ok)
	}
	_, ok = CarouselIndex("https://www.instagram.com/p/abc/")
	if ok {
		t.Error("expected no carousel index for plain URL")
	}
}
