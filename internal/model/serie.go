package model

// SerieType は作品の種別（漫画、ライトノベル等）を表す。
type SerieType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Status は作品のライセンス状況を表す。
type Status string

const (
	// StatusLicensed はライセンス取得済みの状態。
	StatusLicensed Status = "Licensed"
	// StatusPublished は刊行中の状態。
	StatusPublished Status = "Published"
	// StatusFinished は完結済みの状態。
	StatusFinished Status = "Finished"
)

// AllStatuses は既知の全ステータスを返す。
func AllStatuses() []Status {
	return []Status{StatusLicensed, StatusPublished, StatusFinished}
}

// Serie はライセンス作品を表す。
type Serie struct {
	ID        EntryID   `json:"id"`
	Name      string    `json:"name"`
	Type      SerieType `json:"type"`
	Publisher Publisher `json:"publisher"`
	Status    Status    `json:"status"`
	AniList   *int      `json:"anilist"`
	ImageURL  *string   `json:"image_url"`
}

// Image は表紙画像のソースパスを返す。
func (s Serie) Image() string {
	if s.ImageURL == nil {
		return ""
	}
	return *s.ImageURL
}

// License は作品のライセンス取得情報を表す。
type License struct {
	Timestamp string  `json:"timestamp"`
	ImageURL  *string `json:"image_url"`
	Source    *string `json:"source"`
}

// SerieDetail は作品詳細ページ用のデータを表す。
type SerieDetail struct {
	Serie
	Licensed     *License      `json:"licensed"`
	Publications []Publication `json:"publication"`
}
