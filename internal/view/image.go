package view

import (
	"fmt"
	"strings"
)

// coverWidths はsrcsetに含める幅（px）。
var coverWidths = []int{160, 320, 480, 640, 960}

// defaultCoverWidth はsrcに使用する幅。
const defaultCoverWidth = 320

// ImageBuilder は画像変換エンドポイントのURLを組み立てる。
// URL形式: <endpoint>/<width>x0/filters:quality(<q>)/<source path>
type ImageBuilder struct {
	Endpoint string
	Quality  int
}

// NewImageBuilder はImageBuilderを生成する。qualityが範囲外の場合は90を使用する。
func NewImageBuilder(endpoint string, quality int) ImageBuilder {
	if quality < 1 || quality > 100 {
		quality = 90
	}
	return ImageBuilder{Endpoint: strings.TrimRight(endpoint, "/"), Quality: quality}
}

// URL は指定幅の画像URLを返す。エンドポイント未設定の場合はソースパスをそのまま返す。
func (b ImageBuilder) URL(source string, width int) string {
	if source == "" {
		return ""
	}
	if b.Endpoint == "" {
		return source
	}
	return fmt.Sprintf("%s/%dx0/filters:quality(%d)/%s", b.Endpoint, width, b.Quality, strings.TrimLeft(source, "/"))
}

// SrcSet は固定幅ごとの画像URLをsrcset形式で返す。
// エンドポイント未設定の場合は変換できないため空文字列を返す。
func (b ImageBuilder) SrcSet(source string) string {
	if source == "" || b.Endpoint == "" {
		return ""
	}
	parts := make([]string, 0, len(coverWidths))
	for _, w := range coverWidths {
		parts = append(parts, fmt.Sprintf("%s %dw", b.URL(source, w), w))
	}
	return strings.Join(parts, ", ")
}

// Cover は表紙画像の表示情報。Srcが空の場合はタイトル入りのプレースホルダーを表示する。
type Cover struct {
	Src    string
	SrcSet string
	Sizes  string
	Alt    string
}

// HasImage は画像があるかを返す。
func (c Cover) HasImage() bool {
	return c.Src != ""
}

// Cover は表紙画像の表示情報を返す。
func (b ImageBuilder) Cover(source, alt, sizes string) Cover {
	return Cover{
		Src:    b.URL(source, defaultCoverWidth),
		SrcSet: b.SrcSet(source),
		Sizes:  sizes,
		Alt:    alt,
	}
}
