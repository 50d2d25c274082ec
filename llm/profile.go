package llm

import "net/http"

// Profile describes how to talk to one provider. Adding a provider is adding
// a Profile; Adapter itself never switches on the provider id.
type Profile struct {
	Provider Provider

	// URL is the absolute endpoint the conversation is POSTed to.
	URL string

	// Authorize writes the credential (and any fixed provider headers) to h.
	Authorize func(h http.Header, credential string)

	// Body builds the JSON request body.
	Body func(model string, conv []Message, p Params) any

	// Extract returns the answer text from a 2xx response body. It returns
	// an error when the body does not have the expected shape.
	Extract func(raw []byte) (string, error)
}

func (p Profile) validate() error {
	switch {
	case p.Provider == "":
		return errProfile("empty provider")
	case p.URL == "":
		return errProfile(string(p.Provider) + ": empty url")
	case p.Body == nil || p.Extract == nil:
		return errProfile(string(p.Provider) + ": body and extract are required")
	}
	return nil
}

type errProfile string

func (e errProfile) Error() string { return "llm: invalid profile: " + string(e) }
