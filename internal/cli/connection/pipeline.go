package connection

import "net/http"

// RequestInterceptor runs before a request is sent. It may set headers or
// attach context and returns the request to send (nil keeps req). An error
// aborts the call before anything reaches the network.
type RequestInterceptor func(req *http.Request) (*http.Request, error)

// ResponseInterceptor runs after the round trip. resp is nil when the
// transport failed; err is a *StatusError for non-2xx responses. It
// returns the outcome handed to the next interceptor and finally the caller.
type ResponseInterceptor func(req *http.Request, resp *http.Response, err error) (*http.Response, error)

// pipeline is the ordered set of interceptors installed on a Client.
type pipeline struct {
	before []RequestInterceptor
	after  []ResponseInterceptor
}

func (p *pipeline) prepare(req *http.Request) (*http.Request, error) {
	for _, intercept := range p.before {
		next, err := intercept(req)
		if err != nil {
			return nil, err
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

func (p *pipeline) settle(req *http.Request, resp *http.Response, err error) (*http.Response, error) {
	for _, intercept := range p.after {
		resp, err = intercept(req, resp, err)
	}
	return resp, err
}
