package content

import "strings"

// Event identifies the kind of domain event a notification is built from.
type Event string

const (
	EventLike          Event = "like"
	EventComment       Event = "comment"
	EventFollow        Event = "follow"
	EventFollowRequest Event = "follow_request"
	EventMessage       Event = "message"
	EventMention       Event = "mention"
	EventReply         Event = "reply"
	EventRepost        Event = "repost"
	EventSystem        Event = "system"

	// EventGeneric is the catalog key used when an event has no template.
	EventGeneric Event = "generic"
)

// KnownEvents lists the events shipped in the embedded catalog, excluding the
// generic fallback.
func KnownEvents() []Event {
	return []Event{
		EventLike, EventComment, EventFollow, EventFollowRequest,
		EventMessage, EventMention, EventReply, EventRepost, EventSystem,
	}
}

// Content is the renderable result of building an event.
type Content struct {
	Title string
	Body  string
	// Data carries the event name and the original parameters so clients can
	// route taps and deep-links without parsing the body text.
	Data map[string]string
}

// Build renders the event with the builder's default locale. It is total:
// any event and any parameter map (including nil) produce a usable Content.
func (b *Builder) Build(event Event, params map[string]string) Content {
	return b.BuildLocalized("", event, params)
}

// BuildLocalized renders the event for the given BCP-47 locale tag, falling
// back to the builder's default locale when the tag is empty, malformed, or
// has no close match in the catalog.
func (b *Builder) BuildLocalized(locale string, event Event, params map[string]string) Content {
	tpl := b.catalog.lookup(locale, event)

	data := make(map[string]string, len(params)+1)
	for k, v := range params {
		data[k] = v
	}
	data["event"] = string(event)

	return Content{
		Title: interpolate(tpl.Title, params),
		Body:  interpolate(tpl.Body, params),
		Data:  data,
	}
}

// interpolate substitutes {name} placeholders with values from params.
// Placeholders without a matching key render as empty strings; a stray brace
// without a closing pair is passed through verbatim.
func interpolate(tpl string, params map[string]string) string {
	if !strings.ContainsRune(tpl, '{') {
		return tpl
	}

	var sb strings.Builder
	sb.Grow(len(tpl))
	for {
		open := strings.IndexByte(tpl, '{')
		if open < 0 {
			sb.WriteString(tpl)
			break
		}
		closing := strings.IndexByte(tpl[open:], '}')
		if closing < 0 {
			sb.WriteString(tpl)
			break
		}
		sb.WriteString(tpl[:open])
		key := tpl[open+1 : open+closing]
		if v, ok := params[key]; ok {
			sb.WriteString(v)
		}
		tpl = tpl[open+closing+1:]
	}
	return sb.String()
}
