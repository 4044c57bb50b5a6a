package feedback

import "strings"

// Formatter maps form fields to a RequestPayload. Empty defaults fall back to
// DefaultName and DefaultSubject.
type Formatter struct {
	DefaultName    string
	DefaultSubject string
}

// FormatPayload formats data with the package defaults.
func FormatPayload(data SubmitData) RequestPayload {
	return Formatter{}.Format(data)
}

// Format builds the request body for data. The comment is used verbatim.
func (f Formatter) Format(data SubmitData) RequestPayload {
	name := data.Name
	if name == "" {
		name = orDefault(f.DefaultName, DefaultName)
	}

	subject := data.Subject
	if subject == "" {
		subject = orDefault(f.DefaultSubject, DefaultSubject)
	}

	return RequestPayload{
		Request: TicketRequest{
			Requester: Requester{
				Name:  name,
				Email: data.Email,
			},
			Subject: subject,
			Comment: Comment{Body: data.Comment},
		},
	}
}

// AppendPageURL adds the URL of the page the feedback was given on to the
// end of comment, on its own line.
func AppendPageURL(comment, pageURL string) string {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return comment
	}
	return comment + "\n" + pageURL
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
