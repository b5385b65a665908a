// Package worker runs scikit-learn learners in a separate Python process,
// either on the host or inside a Docker container. Requests and responses
// are JSON files in a scratch directory shared with the worker.
package worker

import (
	"errors"

	"github.com/signalnine/crucible/internal/data"
)

var ErrNotSupported = errors.New("not supported by this backend")

type Request struct {
	Op        string   `json:"op"`
	Learner   string   `json:"learner,omitempty"`
	Params    string   `json:"params,omitempty"`
	ModelPath string   `json:"model_path,omitempty"`
	Data      *Payload `json:"data,omitempty"`
}

type Response struct {
	OK          bool        `json:"ok"`
	Error       string      `json:"error,omitempty"`
	Predictions [][]float64 `json:"predictions,omitempty"`
	Version     string      `json:"version,omitempty"`
}

type AttributeInfo struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Values []string `json:"values,omitempty"`
}

// Payload is a dataset on the wire. Missing cells are null.
type Payload struct {
	Attributes []AttributeInfo `json:"attributes"`
	ClassIndex int             `json:"class_index"`
	Rows       [][]*float64    `json:"rows"`
}

func encodeDataset(d *data.Dataset) *Payload {
	p := &Payload{ClassIndex: d.ClassIndex, Rows: make([][]*float64, len(d.Rows))}
	for _, a := range d.Attributes {
		p.Attributes = append(p.Attributes, AttributeInfo{Name: a.Name, Kind: a.Kind.String(), Values: a.Values})
	}
	for i, r := range d.Rows {
		row := make([]*float64, len(r))
		for j, v := range r {
			if !data.IsMissing(v) {
				v := v
				row[j] = &v
			}
		}
		p.Rows[i] = row
	}
	return p
}

// Backend executes one request against a worker process.
type Backend interface {
	Name() string
	Probe() error
	Run(req *Request, env map[string]string) (*Response, error)
	Close() error
}

// CommandConfigurer is implemented by backends whose interpreter can be
// chosen at run time.
type CommandConfigurer interface {
	ConfigureCommand(command, path, serverID string) error
}

// Configure changes b's interpreter settings, or returns ErrNotSupported
// when b has none.
func Configure(b Backend, command, path, serverID string) error {
	cc, ok := b.(CommandConfigurer)
	if !ok {
		return ErrNotSupported
	}
	return cc.ConfigureCommand(command, path, serverID)
}

func checkResponse(resp *Response) (*Response, error) {
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "worker reported failure"
		}
		return nil, errors.New(msg)
	}
	return resp, nil
}
