package translation

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/snonux/readalong/internal/dispatch"
	"codeberg.org/snonux/readalong/internal/guard"
	"codeberg.org/snonux/readalong/internal/page"
	"codeberg.org/snonux/readalong/internal/testutil"
	"codeberg.org/snonux/readalong/internal/vocabulary"
)

func TestTranslate_Scenario(t *testing.T) {
	srv := testutil.NewReadingServer(t, map[string]http.HandlerFunc{
		"/translate": testutil.JSON(http.StatusOK, `{"index":2,"html":"<p>你好，世界</p>","translation":{"vocabulary":[]}}`),
	})

	d, err := dispatch.New(dispatch.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	doc := page.NewDocument(srv.URL + "/news/abc")
	doc.AddParagraph(2, "Hello world")
	src, _ := doc.Paragraph(2)
	box := doc.Container(2)

	result, err := NewTranslator(d).Translate(context.Background(), 2, doc.URL, src, box)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if box.HTML() != "<p>你好，世界</p>" {
		t.Errorf("container HTML = %q", box.HTML())
	}
	if box.Hidden() {
		t.Error("container should be visible")
	}
	if result.HTML != "<p>你好，世界</p>" {
		t.Errorf("result HTML = %q", result.HTML)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(reqs))
	}
	want := map[string]any{"text": "Hello world", "index": float64(2), "source_url": doc.URL}
	if reqs[0].Method != http.MethodPost || reqs[0].Path != "/translate" || !reflect.DeepEqual(reqs[0].Body, want) {
		t.Errorf("request = %+v, want POST /translate %v", reqs[0], want)
	}
}

func TestTranslate_ErrorConditions(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		postErr   error
		wantInBox string
		wantErr   func(error) bool
	}{
		{
			name:      "server error field",
			reply:     `{"error":"quota exceeded","html":"<p>should not show</p>"}`,
			wantInBox: "quota exceeded",
			wantErr: func(err error) bool {
				var ae *AppError
				return errors.As(err, &ae) && ae.Message == "quota exceeded"
			},
		},
		{
			name:      "empty html",
			reply:     `{"html":""}`,
			wantInBox: "Received empty translation",
			wantErr:   func(err error) bool { return errors.Is(err, ErrEmptyTranslation) },
		},
		{
			name:      "missing html",
			reply:     `{"index":1}`,
			wantInBox: "Received empty translation",
			wantErr:   func(err error) bool { return errors.Is(err, ErrEmptyTranslation) },
		},
		{
			name:      "transport failure",
			postErr:   &dispatch.TransportError{Endpoint: "/translate", Err: errors.New("connection refused")},
			wantInBox: "connection refused",
			wantErr: func(err error) bool {
				var te *dispatch.TransportError
				return errors.As(err, &te)
			},
		},
		{
			name:      "malformed reply",
			postErr:   dispatch.ErrMalformedResponse,
			wantInBox: "malformed response",
			wantErr:   func(err error) bool { return errors.Is(err, dispatch.ErrMalformedResponse) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &testutil.MockPoster{Replies: map[string]string{Endpoint: tt.reply}}
			if tt.postErr != nil {
				poster.Errors = map[string]error{Endpoint: tt.postErr}
			}
			box := page.NewBox(page.ContainerID(1))

			result, err := NewTranslator(poster).Translate(context.Background(), 1, "", page.StaticText("text"), box)
			if result != nil {
				t.Errorf("expected nil result, got %+v", result)
			}
			if !tt.wantErr(err) {
				t.Errorf("unexpected error: %v", err)
			}

			got := box.HTML()
			if !strings.Contains(got, tt.wantInBox) {
				t.Errorf("container %q does not contain %q", got, tt.wantInBox)
			}
			if !strings.Contains(got, `class="text-red-500"`) {
				t.Errorf("container %q is not styled as an error", got)
			}
			if strings.Contains(got, "should not show") {
				t.Errorf("html must not be injected on error: %q", got)
			}
			if box.Hidden() {
				t.Error("container should be visible after an error")
			}
		})
	}
}

func TestTranslate_MissingParagraph(t *testing.T) {
	poster := &testutil.MockPoster{}
	box := page.NewBox("translation-9")

	_, err := NewTranslator(poster).Translate(context.Background(), 9, "", testutil.MockSource{Err: page.ErrNoParagraph}, box)
	if !errors.Is(err, page.ErrNoParagraph) {
		t.Errorf("expected ErrNoParagraph, got %v", err)
	}
	if poster.CallCount() != 0 {
		t.Error("no request should be sent without a paragraph")
	}
	if !strings.Contains(box.HTML(), "Translation Error") {
		t.Errorf("container = %q", box.HTML())
	}
}

func TestTranslate_EmptyText(t *testing.T) {
	poster := &testutil.MockPoster{}
	box := page.NewBox("translation-0")

	_, err := NewTranslator(poster).Translate(context.Background(), 0, "", page.StaticText("   \n"), box)
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if poster.CallCount() != 0 {
		t.Error("no request should be sent for blank text")
	}
}

func TestTranslate_LoadingState(t *testing.T) {
	poster := &testutil.MockPoster{
		Replies: map[string]string{Endpoint: `{"html":"<p>ok</p>"}`},
		Block:   make(chan struct{}),
	}
	box := page.NewBox("translation-0")

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewTranslator(poster).Translate(context.Background(), 0, "", page.StaticText("text"), box)
	}()

	deadline := time.After(2 * time.Second)
	for box.HTML() != LoadingHTML {
		select {
		case <-deadline:
			t.Fatalf("container never showed the loading state, got %q", box.HTML())
		case <-time.After(5 * time.Millisecond):
		}
	}
	if box.Hidden() {
		t.Error("container should be visible while loading")
	}

	close(poster.Block)
	<-done

	if box.HTML() != "<p>ok</p>" {
		t.Errorf("container = %q", box.HTML())
	}
}

func TestTranslate_Guard(t *testing.T) {
	poster := &testutil.MockPoster{
		Replies: map[string]string{Endpoint: `{"html":"<p>ok</p>"}`},
		Block:   make(chan struct{}),
	}
	g := guard.New()
	tr := NewTranslator(poster, WithGuard(g))
	box := page.NewBox("translation-4")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tr.Translate(context.Background(), 4, "", page.StaticText("text"), box)
	}()

	deadline := time.After(2 * time.Second)
	for !g.Busy("translate:4") {
		select {
		case <-deadline:
			t.Fatal("first translate never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := tr.Translate(context.Background(), 4, "", page.StaticText("text"), box); !errors.Is(err, guard.ErrBusy) {
		t.Errorf("second trigger error = %v, want ErrBusy", err)
	}
	if box.HTML() != LoadingHTML {
		t.Errorf("rejected trigger must not touch the container, got %q", box.HTML())
	}

	close(poster.Block)
	wg.Wait()

	if poster.CallCount() != 1 {
		t.Errorf("expected 1 request, got %d", poster.CallCount())
	}
}

func TestTranslate_RecordsVocabularyAndCaches(t *testing.T) {
	poster := &testutil.MockPoster{Replies: map[string]string{
		Endpoint: `{"html":"<p>ok</p>","translation":{"vocabulary":["rally",{"word":"bond"},""]}}`,
	}}
	recorder := &testutil.MockRecorder{}
	cache := NewTranslationCache()
	tr := NewTranslator(poster, WithRecorder(recorder), WithCache(cache))

	_, err := tr.Translate(context.Background(), 3, "http://x/news/1", page.StaticText("text"), page.NewBox("translation-3"))
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(recorder.Words, []string{"rally", "bond"}) {
		t.Errorf("recorded words = %v", recorder.Words)
	}
	if !reflect.DeepEqual(recorder.Sources, []string{"http://x/news/1"}) {
		t.Errorf("recorded sources = %v", recorder.Sources)
	}

	if got, ok := cache.Get(3); !ok || got.HTML != "<p>ok</p>" {
		t.Errorf("cache.Get(3) = %v, %v", got, ok)
	}
}

func TestTranslate_RecorderFailureIsNotFatal(t *testing.T) {
	poster := &testutil.MockPoster{Replies: map[string]string{
		Endpoint: `{"html":"<p>ok</p>","translation":{"vocabulary":["rally"]}}`,
	}}
	recorder := &testutil.MockRecorder{Err: errors.New("disk full")}
	box := page.NewBox("translation-0")

	if _, err := NewTranslator(poster, WithRecorder(recorder)).Translate(context.Background(), 0, "", page.StaticText("t"), box); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if box.HTML() != "<p>ok</p>" {
		t.Errorf("container = %q", box.HTML())
	}
}

func TestRenderError(t *testing.T) {
	got := RenderError(`bad <input> & "quotes"`)
	want := `<div class="text-red-500">Translation Error: bad &lt;input&gt; &amp; &#34;quotes&#34;</div>`
	if got != want {
		t.Errorf("RenderError() = %q, want %q", got, want)
	}
}

func TestSaveTranslation(t *testing.T) {
	tmpDir := t.TempDir()

	path, err := SaveTranslation(tmpDir, 2, &Result{HTML: "<p>你好</p>"})
	if err != nil {
		t.Fatalf("SaveTranslation failed: %v", err)
	}
	if path != filepath.Join(tmpDir, "translation-2.html") {
		t.Errorf("path = %s", path)
	}
	testutil.AssertFileContent(t, path, []byte("<p>你好</p>\n"))

	if _, err := SaveTranslation("/nonexistent/path", 2, &Result{}); err == nil {
		t.Error("Expected error for invalid path")
	}
}

func TestTranslationCache_GetAll(t *testing.T) {
	cache := NewTranslationCache()
	cache.Add(0, &Result{HTML: "a"})
	cache.Add(1, &Result{HTML: "b"})

	all := cache.GetAll()
	if len(all) != 2 {
		t.Fatalf("GetAll() returned %d entries", len(all))
	}

	delete(all, 0)
	if _, ok := cache.Get(0); !ok {
		t.Error("Cache was modified through returned map")
	}
}

func TestTranslate_UnreadableVocabularyKeepsHTML(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantWords []string
	}{
		{"translation is a string", `{"html":"<p>ok</p>","translation":"plain string"}`, nil},
		{"vocabulary of numbers", `{"html":"<p>ok</p>","translation":{"vocabulary":[1,2]}}`, nil},
		{"no vocabulary key", `{"html":"<p>ok</p>","translation":{"zh":"x"}}`, nil},
		{"vocabulary is an object", `{"html":"<p>ok</p>","translation":{"vocabulary":{"word":"x"}}}`, nil},
		{"null translation", `{"html":"<p>ok</p>","translation":null}`, nil},
		{"bad entries skipped", `{"html":"<p>ok</p>","translation":{"vocabulary":[true,"rally",{"word":7},{"word":"bond"}]}}`, []string{"rally", "bond"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &testutil.MockPoster{Replies: map[string]string{Endpoint: tt.reply}}
			recorder := &testutil.MockRecorder{}
			box := page.NewBox(page.ContainerID(4))

			_, err := NewTranslator(poster, WithRecorder(recorder)).Translate(context.Background(), 4, "", page.StaticText("text"), box)
			if err != nil {
				t.Fatalf("Translate failed: %v", err)
			}
			if box.HTML() != "<p>ok</p>" {
				t.Errorf("container = %q, want <p>ok</p>", box.HTML())
			}
			if !reflect.DeepEqual(recorder.Words, tt.wantWords) {
				t.Errorf("recorded words = %v, want %v", recorder.Words, tt.wantWords)
			}
		})
	}
}

func TestResultWords(t *testing.T) {
	r := &Result{Translation: []byte(`{"vocabulary":[
		{"word":"sophisticated","pos":"adj.","def_cn":"复杂的","definition_en":"highly developed","example":"a sophisticated plan","pronunciation":"/səˈfɪstɪkeɪtɪd/","difficulty_level":"C1"},
		"rally",
		"  ",
		42
	]}`)}

	words, skipped := r.Words()

	want := []vocabulary.Word{
		{
			Word:            "sophisticated",
			POS:             "adj.",
			DefinitionCN:    "复杂的",
			DefinitionEN:    "highly developed",
			Example:         "a sophisticated plan",
			Pronunciation:   "/səˈfɪstɪkeɪtɪd/",
			DifficultyLevel: "C1",
		},
		{Word: "rally"},
	}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("Words() = %+v, want %+v", words, want)
	}
	if len(skipped) != 1 || !strings.Contains(skipped[0].Error(), "entry 3") {
		t.Errorf("skipped = %v, want one error for entry 3", skipped)
	}

	var empty *Result
	if words, skipped := empty.Words(); words != nil || skipped != nil {
		t.Errorf("nil result Words() = %v, %v", words, skipped)
	}
}
