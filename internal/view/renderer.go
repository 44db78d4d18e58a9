package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/hitoshi/releasecal/internal/site"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページテンプレート名。
const (
	PageCalendar = "calendar"
	PageSeries   = "series"
	PageSerie    = "serie"
	PageMessage  = "message"
)

// 共通レイアウトと部品。各ページテンプレートと組み合わせてパースする。
var sharedTemplates = []string{"templates/layout.html", "templates/parts.html"}

// Renderer は埋め込みテンプレートでページを描画する。
// テンプレートは起動時に1回だけパースする。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer はテンプレートをパースしてRendererを生成する。
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"seq": seq,
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageCalendar, PageSeries, PageSerie, PageMessage} {
		files := make([]string, 0, len(sharedTemplates)+1)
		files = append(files, sharedTemplates...)
		files = append(files, "templates/"+name+".html")
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render はページを描画してwに書き込む。
// エラー時にwへは何も書き込まない。
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page template: %s", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// MessagePage はエラーや未検出を伝える単純なページ。
type MessagePage struct {
	Title   string
	Heading string
	Message string
	BackURL string
	Site    *site.Content
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
