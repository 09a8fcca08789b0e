package mailgun

import "github.com/ignite/courier/internal/provider"

// domainResponse is a domain record from the /v4/domains API. Only the
// fields the identity lifecycle needs are decoded.
type domainResponse struct {
	Name         string `json:"name"`
	State        string `json:"state"`
	DKIMSelector string `json:"dkim_selector"`
}

// createDomainResponse wraps the created domain record.
type createDomainResponse struct {
	Domain  domainResponse `json:"domain"`
	Message string         `json:"message"`
}

// sendResponse is returned by the messages API.
type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (r *domainResponse) toDomain() *provider.Domain {
	d := &provider.Domain{
		Name:   r.Name,
		Status: mapState(r.State),
	}
	if r.DKIMSelector != "" {
		d.DKIMTokens = []string{r.DKIMSelector}
	}
	return d
}

// mapState maps Mailgun's domain state onto the local tri-state.
func mapState(state string) provider.DomainStatus {
	switch state {
	case "active":
		return provider.StatusSuccess
	case "unverified":
		return provider.StatusPending
	default:
		return provider.StatusFailed
	}
}
