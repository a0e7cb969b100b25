package elasticsearch

import "net/http"

func fakeResponse(status int) *http.Response {
	return &http.Response{StatusCode: status}
}
