package transfer

// GraphObject is the {"id": ...} body returned by Graph API create calls.
type GraphObject struct {
	ID     string `json:"id"`
	PostID string `json:"post_id,omitempty"`
}

type GraphErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}

// InstagramContainerStatus is the body of GET /{container-id}?fields=status_code,status.
type InstagramContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Status     string `json:"status,omitempty"`
}
