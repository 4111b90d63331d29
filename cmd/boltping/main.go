// The MIT License (MIT)
//
// Copyright (c) 2013-2017 Oryx(ossrs)
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

// boltping dials a Bolt server, negotiates a version, runs one statement,
// prints the records it streams back, and says goodbye. It exists to
// exercise the bolt package end to end; it is not part of the core.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/boltstream/bolt-go/bolt"
	oh "github.com/boltstream/bolt-go/http"
	"github.com/boltstream/bolt-go/logger"
	"github.com/boltstream/bolt-go/packstream"
)

const (
	userAgent       = "boltping/0.1"
	boltpingVersion = "0.1.0"
)

func main() {
	app := cli.NewApp()
	app.Name = "boltping"
	app.Usage = "dial a Bolt server, run one statement, print the records"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "addr", Value: "127.0.0.1:7687", Usage: "host:port of the Bolt server"},
		cli.StringFlag{Name: "user, u", Value: "neo4j", Usage: "principal for Hello/Init"},
		cli.StringFlag{Name: "password, p", Value: "", Usage: "credentials for Hello/Init"},
		cli.StringFlag{Name: "statement, s", Value: "RETURN 1", Usage: "statement to Run"},
		cli.IntFlag{Name: "max-minor", Value: 4, Usage: "highest protocol minor version to propose under major 4"},
		cli.StringFlag{Name: "admin-addr", Value: "", Usage: "if set, serve /version and /metrics here while boltping runs"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logger.E(nil, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	reg := prometheus.NewRegistry()
	metrics := bolt.NewMetrics(reg)

	if addr := c.String("admin-addr"); addr != "" {
		serveAdmin(addr, reg)
	}

	conn, err := net.Dial("tcp", c.String("addr"))
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.String("addr"), err)
	}
	defer conn.Close()

	client, err := bolt.Connect(conn,
		bolt.WithProposals(proposalsUpTo(byte(c.Int("max-minor")))...),
		bolt.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	logger.T(client, "connected, negotiated protocol", client.Version())

	auth := packstream.NewMap()
	auth.Set("scheme", "basic")
	auth.Set("principal", c.String("user"))
	auth.Set("credentials", c.String("password"))
	if err := client.Hello(userAgent, auth); err != nil {
		return fmt.Errorf("hello: %w", err)
	}

	if err := client.Run(c.String("statement"), packstream.NewMap()); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	stream, err := pullEverything(client)
	if err != nil {
		return err
	}
	for {
		rec, ok, err := stream.Next()
		if err != nil {
			return fmt.Errorf("streaming result: %w", err)
		}
		if !ok {
			break
		}
		fmt.Println(rec.Fields)
	}

	return client.Goodbye()
}

func pullEverything(client *bolt.Conn) (*bolt.ResultStream, error) {
	if client.Version().AtLeast(4, 0) {
		return client.Pull(-1, -1)
	}
	return client.PullAll()
}

// serveAdmin starts a background HTTP server exposing /version (in the
// standard {code,server,data} envelope) and /metrics (Prometheus text
// format) for the duration of the run. It never returns an error to the caller:
// a broken admin listener shouldn't abort the Bolt session it's reporting on.
func serveAdmin(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		oh.WriteVersion(w, r, boltpingVersion)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.W(nil, "admin server on", addr, "exited:", err)
		}
	}()
	logger.T(nil, "admin server listening on", addr)
}

// proposalsUpTo trims bolt.DefaultProposals to versions at or below the
// requested 4.x minor, so --max-minor=0 never offers 4.3/4.4 to a server
// that only understands the first 4.x revision.
func proposalsUpTo(maxMinor byte) []bolt.Version {
	proposals := make([]bolt.Version, 0, len(bolt.DefaultProposals))
	for _, v := range bolt.DefaultProposals {
		if v.Major == 4 && v.Minor > maxMinor {
			continue
		}
		proposals = append(proposals, v)
	}
	return proposals
}
