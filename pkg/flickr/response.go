package flickr

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Outcome classifies an interpreted response
type Outcome int

const (
	OutcomeProtocolError Outcome = iota
	OutcomeOK
	OutcomeFail
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFail:
		return "fail"
	default:
		return "protocol_error"
	}
}

// Response is a classified service response. ErrorCode and ErrorMessage
// are set only for OutcomeFail, Payload only for OutcomeOK and
// ProtocolMessage only for OutcomeProtocolError.
type Response struct {
	HTTPStatus      int
	Outcome         Outcome
	ErrorCode       int
	ErrorMessage    string
	ProtocolMessage string
	Payload         *Node
}

// OK reports whether the service accepted the call
func (r *Response) OK() bool {
	return r.Outcome == OutcomeOK
}

// Err returns nil for OutcomeOK, an *APIError for OutcomeFail and a
// *ProtocolError otherwise.
func (r *Response) Err() error {
	switch r.Outcome {
	case OutcomeOK:
		return nil
	case OutcomeFail:
		return &APIError{Code: r.ErrorCode, Message: r.ErrorMessage}
	default:
		return &ProtocolError{Status: r.HTTPStatus, Message: r.ProtocolMessage}
	}
}

// Interpret classifies an HTTP status and body into a Response. It does not
// retain body and returns equal values for equal inputs.
func Interpret(status int, body []byte) *Response {
	if status != http.StatusOK {
		return protocolError(status, fmt.Sprintf("unexpected HTTP status %d", status))
	}

	root, err := parseDocument(body)
	if err != nil {
		return protocolError(status, "invalid response: "+err.Error())
	}
	if root.Name != "rsp" {
		return protocolError(status, "invalid response: root element is <"+root.Name+">")
	}

	switch stat := root.Attr("stat"); stat {
	case "ok":
		return &Response{HTTPStatus: status, Outcome: OutcomeOK, Payload: root}
	case "fail":
		return failure(status, root.FirstChild())
	default:
		return protocolError(status, fmt.Sprintf("invalid status code %q", stat))
	}
}

func failure(status int, errNode *Node) *Response {
	resp := &Response{HTTPStatus: status, Outcome: OutcomeFail}
	if errNode == nil || errNode.Name != "err" {
		resp.ErrorCode = ErrCodeNoErrorCode
		resp.ErrorMessage = noErrorCodeMessage
		return resp
	}
	// a non-numeric code is reported as code 0 with the service message kept
	code, _ := strconv.Atoi(strings.TrimSpace(errNode.Attr("code")))
	resp.ErrorCode = code
	resp.ErrorMessage = errNode.Attr("msg")
	if resp.ErrorMessage == "" {
		resp.ErrorMessage = fmt.Sprintf("error %d", code)
	}
	return resp
}

func protocolError(status int, msg string) *Response {
	return &Response{HTTPStatus: status, Outcome: OutcomeProtocolError, ProtocolMessage: msg}
}
