// Package cloudinary talks to the Cloudinary upload API and plays the part of the
// asynchronously loaded upload provider of the media widget.
package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/media"
)

var (
	ErrEmptyToken = errors.New("cloudinary: empty deletion token")
)

// APIError is returned when Cloudinary answers with a non 2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloudinary: %d %s", e.StatusCode, e.Message)
}

// UploadParams are the unsigned upload parameters of a session.
type UploadParams struct {
	UploadPreset string
	Folder       string
}

// Client is a thin Cloudinary REST client.
type Client struct {
	rest      *rest.Client
	baseURL   string
	cloudName string
	timeout   time.Duration
}

var _ media.Deleter = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		rest:      &rest.Client{HTTPClient: &http.Client{Timeout: conf.Cloudinary.RequestTimeout}},
		baseURL:   strings.TrimRight(conf.Cloudinary.APIBaseURL, "/"),
		cloudName: conf.Cloudinary.CloudName,
		timeout:   conf.Cloudinary.RequestTimeout,
	}
}

func (c *Client) CloudName() string { return c.cloudName }

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + url.PathEscape(c.cloudName) + "/" + path
}

func (c *Client) send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	hreq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	hres, err := c.rest.MakeRequest(hreq.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "sending request")
	}
	res, err := rest.BuildResponse(hres)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return res, newAPIError(res)
	}
	return res, nil
}

func newAPIError(res *rest.Response) *APIError {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := http.StatusText(res.StatusCode)
	if err := json.Unmarshal([]byte(res.Body), &body); err == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}
	return &APIError{StatusCode: res.StatusCode, Message: msg}
}

// Upload sends an image through the unsigned upload endpoint and asks for a deletion token.
func (c *Client) Upload(ctx context.Context, params UploadParams, filename string, content io.Reader) (media.UploadInfo, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"upload_preset":       params.UploadPreset,
		"folder":              params.Folder,
		"return_delete_token": "true",
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return media.UploadInfo{}, errors.Wrap(err, "writing "+k)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return media.UploadInfo{}, errors.Wrap(err, "creating file part")
	}
	if _, err = io.Copy(fw, content); err != nil {
		return media.UploadInfo{}, errors.Wrap(err, "copying file")
	}
	if err = mw.Close(); err != nil {
		return media.UploadInfo{}, errors.Wrap(err, "closing multipart body")
	}

	res, err := c.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.endpoint("image/upload"),
		Headers: map[string]string{"Content-Type": mw.FormDataContentType()},
		Body:    body.Bytes(),
	})
	if err != nil {
		return media.UploadInfo{}, errors.Wrap(err, "uploading image")
	}

	var info media.UploadInfo
	if err = json.Unmarshal([]byte(res.Body), &info); err != nil {
		return media.UploadInfo{}, errors.Wrap(err, "decoding upload response")
	}
	return info, nil
}

// DeleteByToken revokes an asset uploaded with return_delete_token.
// Tokens expire 10 minutes after the upload.
func (c *Client) DeleteByToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	form := url.Values{"token": {token}}
	_, err := c.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.endpoint("delete_by_token"),
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte(form.Encode()),
	})
	return errors.Wrap(err, "deleting by token")
}

// Ping checks that the upload API answers. Any response below 500 means it is up:
// a bare GET on the upload endpoint is rejected by Cloudinary with a 4xx.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.send(ctx, rest.Request{Method: rest.Get, BaseURL: c.endpoint("image/upload")})
	if apiErr, ok := errors.Cause(err).(*APIError); ok && apiErr.StatusCode < http.StatusInternalServerError {
		return nil
	}
	return errors.Wrap(err, "pinging upload API")
}
