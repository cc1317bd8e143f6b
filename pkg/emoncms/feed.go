package emoncms

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Feed is one element of the feed/list.json array.
type Feed struct {
	Id string
	// Value holds the raw value text. nil when the endpoint sent an explicit null.
	Value *string
	Time  *int64
	Name  *string
}

// ParseFeedList decodes a feed/list.json body. The top level value must be an
// array of objects; unknown fields are ignored.
func ParseFeedList(body []byte) ([]Feed, error) {
	if !gjson.ValidBytes(body) {
		return nil, &FormatError{Reason: "body is not valid json"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, &FormatError{Reason: fmt.Sprintf("expected json array, got %s", root.Type)}
	}

	var feeds []Feed
	var parseErr error
	index := 0
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			parseErr = &FormatError{Reason: fmt.Sprintf("feed #%d is not an object", index)}
			return false
		}
		feeds = append(feeds, feedFromResult(item))
		index++
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return feeds, nil
}

func feedFromResult(item gjson.Result) Feed {
	feed := Feed{}

	// numeric ids are matched by their text
	if id := item.Get("id"); id.Exists() && id.Type != gjson.Null {
		feed.Id = id.String()
	}

	switch value := item.Get("value"); {
	case !value.Exists():
		// a missing value reads as zero
		zero := "0"
		feed.Value = &zero
	case value.Type == gjson.Null:
		feed.Value = nil
	case value.Type == gjson.String:
		str := value.Str
		feed.Value = &str
	default:
		raw := strings.TrimSpace(value.Raw)
		feed.Value = &raw
	}

	if t := item.Get("time"); t.Type == gjson.Number {
		v := t.Int()
		feed.Time = &v
	}

	if name := item.Get("name"); name.Type == gjson.String {
		str := name.Str
		feed.Name = &str
	}

	return feed
}

// FeedIds returns the ids in response order.
func FeedIds(feeds []Feed) []string {
	ids := make([]string, 0, len(feeds))
	for i := range feeds {
		ids = append(ids, feeds[i].Id)
	}
	return ids
}
