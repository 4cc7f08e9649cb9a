package upstream

// Wire schemas of the feedback backend. Field names follow the server's
// JSON exactly.

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	ID          int    `json:"id"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company"`
	Role     string `json:"role"`
}

type createFeedbackRequest struct {
	Member       string   `json:"member"`
	Strengths    string   `json:"strengths"`
	Improvement  string   `json:"improvement"`
	Sentiment    string   `json:"sentiment"`
	Tags         []string `json:"tags"`
	GivenBy      int      `json:"given_by"`
	Acknowledged bool     `json:"acknowledged"`
}

type editFeedbackRequest struct {
	Strengths   string   `json:"strengths"`
	Improvement string   `json:"improvement"`
	Sentiment   string   `json:"sentiment"`
	Tags        []string `json:"tags"`
}

type requestFeedbackRequest struct {
	Member string `json:"member"`
}

type completeRequestRequest struct {
	Employee  string `json:"employee"`
	ManagerID int    `json:"manager_id"`
}

// detailEnvelope is the backend's error body: {"detail": "..."}.
type detailEnvelope struct {
	Detail string `json:"detail"`
}

// metricEndpoint maps one (role, metric) pair to its path suffix and the
// JSON field carrying the value.
type metricEndpoint struct {
	path  string
	field string
}
