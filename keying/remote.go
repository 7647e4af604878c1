package keying

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/chaos-io/iconprep/imgio"
	nhttp "github.com/chaos-io/iconprep/util/http"
)

// RemoteRemover 把抠图交给远端 iconprep serve 的 /v1/key
type RemoteRemover struct {
	endpoint string
	cli      nhttp.IClient
}

func NewRemoteRemover(endpoint string, cli nhttp.IClient) *RemoteRemover {
	if cli == nil {
		cli = nhttp.NewHTTPClient()
	}
	return &RemoteRemover{
		endpoint: endpoint,
		cli:      cli,
	}
}

// Remove 上传到 iconprep serve 的 /v1/key，等价于
//
//	curl -X POST "$BASE_URL/v1/key" -F "image=@mascot.png" -o mascot_transparent.png
func (r *RemoteRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	data, err := imgio.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	_ = writer.Close()

	var resp []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: r.endpoint,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   &resp,
	}
	if err := r.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	slog.Debug("get the response", "endpoint", r.endpoint, "bytes", len(resp))

	return imgio.Decode(r.endpoint, resp)
}
