// Package site はサイト名・ナビゲーション・販売店リンクなどの表示用コンテンツを提供する。
// 既定値はバイナリに埋め込んだsite.yamlで、SITE_CONFIGで指定したファイルで上書きできる。
package site

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultYAML []byte

// queryPlaceholder は販売店検索URL内の検索語の置換位置。
const queryPlaceholder = "{query}"

// Link はラベル付きのリンク。
type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Store は作品名で検索できる販売店。
type Store struct {
	Name      string `yaml:"name"`
	SearchURL string `yaml:"search_url"`
}

// SearchLink は作品名を埋め込んだ検索URLを返す。
func (s Store) SearchLink(name string) string {
	return strings.ReplaceAll(s.SearchURL, queryPlaceholder, url.QueryEscape(name))
}

// Content はサイト全体の表示用コンテンツ。
type Content struct {
	Title         string  `yaml:"title"`
	TitleTemplate string  `yaml:"title_template"`
	SiteName      string  `yaml:"site_name"`
	ThemeColor    string  `yaml:"theme_color"`
	Navigation    []Link  `yaml:"navigation"`
	Social        []Link  `yaml:"social"`
	Footer        []Link  `yaml:"footer"`
	Stores        []Store `yaml:"stores"`
}

// PageTitle はページ名をタイトルテンプレートに当てはめる。
// ページ名が空の場合はサイト名を返す。
func (c *Content) PageTitle(page string) string {
	if page == "" || c.TitleTemplate == "" {
		return c.SiteName
	}
	return strings.Replace(c.TitleTemplate, "%s", page, 1)
}

// Default は埋め込みの既定コンテンツを返す。
func Default() (*Content, error) {
	return parse(defaultYAML)
}

// Load はpathのYAMLを読み込む。pathが空の場合は既定コンテンツを返す。
// ファイルで指定されなかった項目は既定値を引き継ぐ。
func Load(path string) (*Content, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse site config %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid site config %s: %w", path, err)
	}
	return c, nil
}

func parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse site config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Content) validate() error {
	if c.SiteName == "" {
		return fmt.Errorf("site_name is required")
	}
	for _, s := range c.Stores {
		if !strings.Contains(s.SearchURL, queryPlaceholder) {
			return fmt.Errorf("store %q: search_url must contain %s", s.Name, queryPlaceholder)
		}
	}
	return nil
}
