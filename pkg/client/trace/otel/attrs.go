package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/keboola/go-result-client/pkg/request"
)

const maskedAttrValue = "****"

type attributes struct {
	config config
	// definitionURL is the request URL before path params replacement
	definitionURL *url.URL
	// redactedValues are values of the redacted path params, they are masked in the URL
	redactedValues map[string]struct{}
	// definition attributes for span and metrics
	definition []attribute.KeyValue
	// definitionExtra attributes for span only
	definitionExtra []attribute.KeyValue
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
	// httpResponseExtra attributes for span only
	httpResponseExtra []attribute.KeyValue
	// httpResponseError attributes for span only
	httpResponseError []attribute.KeyValue
}

func newAttributes(cfg config, reqDef request.HTTPRequest) *attributes {
	out := &attributes{config: cfg, definitionURL: reqDef.URL(), redactedValues: make(map[string]struct{})}
	reqURL := out.definitionURL

	var resultType string
	if v := reflect.TypeOf(reqDef.ResultDef()); v != nil {
		resultType = v.String()
	}

	out.definition = []attribute.KeyValue{
		attribute.String("definition.method", reqDef.Method()),
		attribute.String("definition.result.type", resultType),
		attribute.String("definition.url.full", mustURLPathUnescape(reqURL.String())),
		attribute.String("definition.url.path", mustURLPathUnescape(reqURL.Path)),
		attribute.String("definition.url.host.full", reqURL.Host),
	}
	if dotPos := strings.IndexByte(reqURL.Host, '.'); dotPos > 0 {
		out.definition = append(out.definition,
			// Host prefix, e.g. "connection", "encryption"
			attribute.String("definition.url.host.prefix", reqURL.Host[:dotPos]),
			// Host suffix, e.g. "keboola.com"
			attribute.String("definition.url.host.suffix", strings.TrimLeft(reqURL.Host[dotPos:], ".")),
		)
	}

	var params []attribute.KeyValue
	for k, v := range reqDef.QueryParams() {
		value := strings.Join(v, ";")
		if _, found := cfg.redactedQueryParams[strings.ToLower(k)]; found {
			value = maskedAttrValue
		}
		params = append(params, attribute.String("definition.params.query."+k, value))
	}
	for k, v := range reqDef.PathParams() {
		value := v
		if _, found := cfg.redactedPathParams[strings.ToLower(k)]; found {
			out.redactedValues[value] = struct{}{}
			value = maskedAttrValue
		}
		params = append(params, attribute.String("definition.params.path."+k, value))
	}
	sortAttrs(params)
	out.definitionExtra = append(headerAttrs("definition.header.", reqDef.RequestHeader(), cfg.redactedHeaders), params...)

	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	if req == nil {
		v.httpRequest = nil
		v.httpRequestExtra = nil
		return
	}

	v.httpRequest = []attribute.KeyValue{
		semconv.HTTPMethodKey.String(req.Method),
		semconv.HTTPURLKey.String(v.redactURL(req.URL)),
		semconv.NetPeerNameKey.String(req.URL.Hostname()),
	}
	if req.Proto != "" {
		v.httpRequest = append(v.httpRequest, semconv.HTTPFlavorKey.String(strings.TrimPrefix(req.Proto, "HTTP/")))
	}

	v.httpRequestExtra = nil
	if userAgent := req.UserAgent(); userAgent != "" {
		v.httpRequestExtra = append(v.httpRequestExtra, semconv.HTTPUserAgentKey.String(userAgent))
	}
	header := req.Header.Clone()
	header.Del("User-Agent")
	v.httpRequestExtra = append(v.httpRequestExtra, headerAttrs("http.header.", header, v.config.redactedHeaders)...)
}

func (v *attributes) SetFromResponse(res *http.Response, err error) {
	if res == nil {
		v.httpResponse = nil
		v.httpResponseExtra = nil
	} else {
		v.httpResponse = []attribute.KeyValue{semconv.HTTPStatusCodeKey.Int(res.StatusCode)}
		v.httpResponseExtra = headerAttrs("http.response.header.", res.Header, v.config.redactedHeaders)
	}

	var netErr net.Error
	errors.As(err, &netErr)
	v.httpResponseError = []attribute.KeyValue{
		attribute.Bool("http.response.is_success", isSuccess(res, err)),
		attribute.Bool("http.response.is_redirect", isRedirection(res)),
		attribute.Bool("http.response.error.has", err != nil),
		attribute.Bool("http.response.error.net", netErr != nil),
		attribute.Bool("http.response.error.timeout", netErr != nil && netErr.Timeout()),
		attribute.Bool("http.response.error.cancelled", errors.Is(err, context.Canceled)),
		attribute.Bool("http.response.error.deadline_exceeded", errors.Is(err, context.DeadlineExceeded)),
	}
}

// redactURL returns the URL string with values of the redacted path and query params masked.
func (v *attributes) redactURL(u *url.URL) string {
	var out strings.Builder
	if u.Scheme != "" {
		out.WriteString(u.Scheme)
		out.WriteString("://")
	}
	out.WriteString(u.Host)

	segments := strings.Split(u.EscapedPath(), "/")
	for i, segment := range segments {
		if unescaped, err := url.PathUnescape(segment); err == nil && segment != "" {
			if _, found := v.redactedValues[unescaped]; found {
				segments[i] = maskedAttrValue
			}
		}
	}
	out.WriteString(strings.Join(segments, "/"))

	query := u.Query()
	if len(query) == 0 {
		return out.String()
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out.WriteByte('?')
	first := true
	for _, k := range keys {
		_, redacted := v.config.redactedQueryParams[strings.ToLower(k)]
		for _, value := range query[k] {
			if !first {
				out.WriteByte('&')
			}
			first = false
			out.WriteString(url.QueryEscape(k))
			out.WriteByte('=')
			if redacted {
				out.WriteString(maskedAttrValue)
			} else {
				out.WriteString(url.QueryEscape(value))
			}
		}
	}
	return out.String()
}

func headerAttrs(prefix string, header http.Header, redacted map[string]struct{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(header))
	for key, values := range header {
		key = strings.ToLower(key)
		value := strings.Join(values, ";")
		if _, found := redacted[key]; found {
			value = maskedAttrValue
		}
		attrs = append(attrs, attribute.String(prefix+key, value))
	}
	sortAttrs(attrs)
	return attrs
}

func sortAttrs(attrs []attribute.KeyValue) {
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
}

func mustURLPathUnescape(in string) string {
	out, err := url.PathUnescape(in)
	if err != nil {
		return in
	}
	return out
}

func isSuccess(r *http.Response, err error) bool {
	if err != nil {
		return false
	}
	return r != nil && r.StatusCode < http.StatusBadRequest
}

func isRedirection(r *http.Response) bool {
	return r != nil && r.StatusCode >= http.StatusMultipleChoices && r.StatusCode < http.StatusBadRequest
}
