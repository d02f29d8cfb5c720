// Package cfnresponse reports the outcome of a custom resource request back to CloudFormation.
package cfnresponse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

const (
	Success = cfn.StatusSuccess
	Failed  = cfn.StatusFailed

	DefaultTimeout = 30 * time.Second
)

// Response is the body CloudFormation expects at the request's ResponseURL. Every field is always present.
type Response struct {
	Status             cfn.StatusType `json:"Status"`
	Reason             string         `json:"Reason"`
	PhysicalResourceId string         `json:"PhysicalResourceId"`
	StackId            string         `json:"StackId"`
	RequestId          string         `json:"RequestId"`
	LogicalResourceId  string         `json:"LogicalResourceId"`
	Data               map[string]any `json:"Data"`
}

// Reason points operators at the log stream of the invocation.
func Reason(logStream string) string {
	return "See the details in CloudWatch Log Stream: " + logStream
}

// NewResponse answers event. A nil data is sent as an empty object.
func NewResponse(event cfn.Event, status cfn.StatusType, reason, physicalResourceId string, data map[string]any) Response {
	if data == nil {
		data = map[string]any{}
	}
	return Response{
		Status:             status,
		Reason:             reason,
		PhysicalResourceId: physicalResourceId,
		StackId:            event.StackID,
		RequestId:          event.RequestID,
		LogicalResourceId:  event.LogicalResourceID,
		Data:               data,
	}
}

// Sender delivers responses with a single PUT and no retries.
type Sender struct {
	Client *httpclient.Client
}

func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		Client: httpclient.NewClient(
			httpclient.WithHTTPTimeout(timeout),
			httpclient.WithRetryCount(0),
		),
	}
}

func (s *Sender) Send(ctx context.Context, responseURL string, resp Response) error {
	log := logging.GetLogger(ctx)
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("could not encode response: %w", err)
	}
	log.Info("Sending response", zap.ByteString("body", body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, responseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create response request: %w", err)
	}
	// The pre-signed URL is signed without a content type.
	req.Header.Set("Content-Type", "")

	res, err := s.Client.Do(req)
	if res != nil {
		defer res.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("could not send response: %w", err)
	}
	log.Info("Response sent", zap.Int("status_code", res.StatusCode))
	return nil
}
