// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Publisher は出版社・発行元を表す。
// 参照データとして取得し、クライアント側では変更しない。
type Publisher struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// EntryID は発売エントリのIDを表す。
// 上流APIは文字列と数値のどちらでも返すため、両方を受け付け、元の形式で書き戻す。
type EntryID struct {
	value   string
	numeric bool
}

// NewEntryID は文字列形式のEntryIDを生成する。
func NewEntryID(v string) EntryID {
	return EntryID{value: v}
}

// NewNumericEntryID は数値形式のEntryIDを生成する。
func NewNumericEntryID(v int64) EntryID {
	return EntryID{value: strconv.FormatInt(v, 10), numeric: true}
}

// String はIDの文字列表現を返す。
func (id EntryID) String() string {
	return id.value
}

// UnmarshalJSON は文字列または数値のIDをデコードする。
func (id *EntryID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = EntryID{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = EntryID{value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid entry id %s: %w", string(b), err)
	}
	*id = EntryID{value: n.String(), numeric: true}
	return nil
}

// MarshalJSON はデコード時と同じ形式でIDをエンコードする。
func (id EntryID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// Publication は特定の日付に予定された（または発売済みの）1件の発売エントリを表す。
// サーバー側で作成され、クライアントは読み取りのみ行う。
type Publication struct {
	ID        EntryID   `json:"id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	Edition   *string   `json:"edition"`
	Price     int64     `json:"price"` // 最小通貨単位（VND）
	ImageURL  *string   `json:"image_url"`
	Publisher Publisher `json:"publisher"`
	Wide      bool      `json:"wide"` // レイアウトヒント
}

// EditionLabel は版の表示名を返す。版がない場合は空文字列。
func (p Publication) EditionLabel() string {
	if p.Edition == nil {
		return ""
	}
	return *p.Edition
}

// Image は表紙画像のソースパスを返す。画像がない場合は空文字列。
func (p Publication) Image() string {
	if p.ImageURL == nil {
		return ""
	}
	return *p.ImageURL
}

// PublicationByDate は同じ暦日の発売エントリをまとめたグループを表す。
// グループ内のエントリ順は上流APIの返却順を保持する。
type PublicationByDate struct {
	Date    string        `json:"date"`
	Entries []Publication `json:"entries"`
}

// Period は表示対象の年月を表す。月は1〜12。
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Valid は月が1〜12の範囲にあるかを返す。
func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year > 0
}

// String は "YYYY-MM" 形式を返す。
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
