package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// transport issues one call and returns the unwrapped result object.
// Implementations are interchangeable; the Client selects one from its
// configuration, direct taking precedence.
type transport interface {
	invoke(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// directTransport posts the raw call payload.
type directTransport struct {
	url    string
	bearer string
	client *http.Client
}

func (t *directTransport) invoke(ctx context.Context, payload map[string]any) (map[string]any, error) {
	obj, err := postJSON(ctx, t.client, t.url, t.bearer, payload)
	if err != nil {
		return nil, err
	}
	return unwrapEnvelope(obj, 1)
}

// routerTransport posts a {tool, action, args} envelope wrapping the same
// payload. Router responses may double-wrap one additional {ok, result}
// layer, which is unwrapped transparently.
type routerTransport struct {
	url    string
	bearer string
	client *http.Client
}

func (t *routerTransport) invoke(ctx context.Context, payload map[string]any) (map[string]any, error) {
	body := map[string]any{
		"tool":   "llm",
		"action": "invoke",
		"args":   payload,
	}
	obj, err := postJSON(ctx, t.client, t.url, t.bearer, body)
	if err != nil {
		return nil, err
	}
	return unwrapEnvelope(obj, 2)
}

func postJSON(ctx context.Context, client *http.Client, url, bearer string, body any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("invoke: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Endpoint: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: url, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: url, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Endpoint: url, Status: resp.StatusCode, Body: bodySnippet(raw)}
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &TransportError{Endpoint: url, Status: resp.StatusCode, Body: bodySnippet(raw), Err: err}
	}
	return obj, nil
}

// unwrapEnvelope peels up to maxLayers of {ok, result, error} wrapping.
// Responses without an "ok" field are flat results and pass through.
func unwrapEnvelope(obj map[string]any, maxLayers int) (map[string]any, error) {
	for layer := 0; layer < maxLayers; layer++ {
		okVal, wrapped := obj["ok"]
		if !wrapped {
			return obj, nil
		}
		okBool, isBool := okVal.(bool)
		if !isBool {
			return nil, &EnvelopeError{Reason: fmt.Sprintf("ok field is %T, want bool", okVal)}
		}
		if !okBool || obj["error"] != nil {
			return nil, &RemoteError{Message: remoteMessage(obj["error"])}
		}
		result, has := obj["result"]
		if !has || result == nil {
			return nil, &EnvelopeError{Reason: "ok envelope is missing result"}
		}
		resultMap, isMap := result.(map[string]any)
		if !isMap {
			// Scalar results are legal on the innermost layer.
			return map[string]any{"output": result}, nil
		}
		obj = resultMap
	}
	if _, stillWrapped := obj["ok"]; stillWrapped {
		return nil, &EnvelopeError{Reason: "envelope is wrapped deeper than the transport allows"}
	}
	return obj, nil
}

func remoteMessage(errField any) string {
	switch v := errField.(type) {
	case nil:
		return "envelope reported failure with no error detail"
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	data, err := json.Marshal(errField)
	if err != nil {
		return fmt.Sprintf("%v", errField)
	}
	return string(data)
}

func bodySnippet(raw []byte) string {
	const max = 512
	if len(raw) > max {
		raw = raw[:max]
	}
	return string(raw)
}
