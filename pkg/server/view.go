package server

import (
	"ar-tryon/pkg/catalog"
	"ar-tryon/pkg/media"
	"ar-tryon/pkg/session"
)

const (
	photoPath = "/api/session/photo"
	livePath  = "/api/session/live"
)

type itemView struct {
	catalog.Item
	Swatches map[string]string `json:"swatches"`
}

func newItemView(it catalog.Item) itemView {
	sw := make(map[string]string, len(it.Colors))
	for _, color := range it.Colors {
		sw[color] = catalog.Swatch(color)
	}
	return itemView{Item: it, Swatches: sw}
}

type photoView struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	MIME   string `json:"mime"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type sessionView struct {
	Mode     session.Mode   `json:"mode"`
	Item     *itemView      `json:"item,omitempty"`
	Size     string         `json:"size,omitempty"`
	Color    string         `json:"color,omitempty"`
	Resource media.Kind     `json:"resource"`
	Photo    *photoView     `json:"photo,omitempty"`
	LiveURL  string         `json:"liveUrl,omitempty"`
	Pending  session.Method `json:"pending,omitempty"`
	Notice   string         `json:"notice,omitempty"`
	Epoch    uint64         `json:"epoch"`
}

func newSessionView(s session.Snapshot) sessionView {
	v := sessionView{
		Mode:     s.Mode,
		Size:     s.Size,
		Color:    s.Color,
		Resource: s.ResourceKind(),
		Pending:  s.Pending,
		Notice:   s.Notice,
		Epoch:    s.Epoch,
	}
	if s.Item != nil {
		iv := newItemView(*s.Item)
		v.Item = &iv
	}
	if img, ok := s.Image(); ok {
		v.Photo = &photoView{
			ID:     img.ID,
			URL:    photoPath + "?v=" + img.ID,
			MIME:   img.MIME,
			Width:  img.Width,
			Height: img.Height,
		}
	}
	if _, ok := s.Stream(); ok {
		v.LiveURL = livePath
	}
	return v
}
