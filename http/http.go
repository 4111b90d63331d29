// The MIT License (MIT)
//
// Copyright (c) 2013-2016 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package http provides the small set of JSON response helpers the
// admin surface's /version endpoint (in cmd/boltping) is built on:
// Data wraps a value in the standard {code, server, data} envelope,
// WriteVersion reports a parsed dotted version through it, and
// SetHeader stamps the common response header.
package http

import (
	"encoding/json"
	"fmt"
	ol "github.com/boltstream/bolt-go/logger"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// header["Content-Type"] in response.
const (
	HttpJson       = "application/json"
	HttpJavaScript = "application/javascript"
)

// header["Server"] in response.
var Server = "bolt-go"

// Data wraps v in the standard {code, server, data} envelope and serves
// it as JSON (or JSONP, via a ?callback= query parameter).
func Data(ctx ol.Context, v interface{}) http.Handler {
	rv := map[string]interface{}{
		"code":   0,
		"server": os.Getpid(),
		"data":   v,
	}

	// for string, directly use it without convert,
	// for the type covert by golang maybe modify the content.
	if v, ok := v.(string); ok {
		rv["data"] = v
	}

	return jsonHandler(ctx, rv)
}

// set http header, for directly use the w,
// for example, user want to directly write raw text.
func SetHeader(w http.ResponseWriter) {
	w.Header().Set("Server", Server)
}

// response json directly.
func jsonHandler(ctx ol.Context, rv interface{}) http.Handler {
	b, err := json.Marshal(rv)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetHeader(w)

		if err != nil {
			ol.E(ctx, "Serve", r.URL, "failed to marshal response, err is", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		q := r.URL.Query()
		if cb := q.Get("callback"); cb != "" {
			w.Header().Set("Content-Type", HttpJavaScript)
			fmt.Fprintf(w, "%s(%s)", cb, string(b))
		} else {
			w.Header().Set("Content-Type", HttpJson)
			w.Write(b)
		}
	})
}

// response the standard version info:
// 	{code, server, data} where server is the server pid, and data is below object:
//	{major, minor, revision, extra, version, signature}
// @param version in {major.minor.revision-extra}, where -extra is optional,
//	for example: 1.0.0 or 1.0.0-0 or 1.0.0-1
func WriteVersion(w http.ResponseWriter, r *http.Request, version string) {
	var major, minor, revision, extra int

	versions := strings.Split(version, "-")
	if len(versions) > 1 {
		extra, _ = strconv.Atoi(versions[1])
	}

	versions = strings.Split(versions[0], ".")
	if len(versions) > 0 {
		major, _ = strconv.Atoi(versions[0])
	}
	if len(versions) > 1 {
		minor, _ = strconv.Atoi(versions[1])
	}
	if len(versions) > 2 {
		revision, _ = strconv.Atoi(versions[2])
	}

	Data(nil, map[string]interface{}{
		"major":     major,
		"minor":     minor,
		"revision":  revision,
		"extra":     extra,
		"version":   version,
		"signature": Server,
	}).ServeHTTP(w, r)
}
