package reload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/kong"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/usdigitalresponse/contracts-ingest/internal/awsHelpers"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

// SQSAPI is the subset of the SQS client used to enqueue reload requests.
type SQSAPI interface {
	SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type Cmd struct {
	QueueURL    string `name:"queue-url" env:"CONTRACTS_RELOAD_QUEUE_URL" required:"" help:"URL of the SQS queue consumed by DownloadContractsSheet"`
	SourceURL   string `name:"source-url" help:"Download the sheet from this URL instead of the pipeline's configured URL"`
	RequestedBy string `name:"requested-by" default:"cli" help:"Identifies who requested the reload"`
	DryRun      bool   `help:"Print the message instead of sending it"`
}

func (cmd *Cmd) Run(app *kong.Kong, logger *log.Logger) error {
	req := contracts.ReloadRequest{
		SourceURL:   cmd.SourceURL,
		RequestedAt: time.Now().UTC(),
		RequestedBy: cmd.RequestedBy,
	}
	if cmd.DryRun {
		return writeRequest(app.Stdout, req)
	}

	ctx := context.Background()
	client, err := awsHelpers.GetSQSClient(ctx)
	if err != nil {
		return log.Errorf(*logger, "Error creating SQS client", err)
	}
	messageID, err := sendReloadRequest(ctx, client, cmd.QueueURL, req)
	if err != nil {
		return log.Errorf(*logger, "Error sending reload request", err, "queue_url", cmd.QueueURL)
	}
	log.Info(*logger, "Sent reload request", "queue_url", cmd.QueueURL, "message_id", messageID)
	return nil
}

func sendReloadRequest(ctx context.Context, c SQSAPI, queueURL string, req contracts.ReloadRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	out, err := c.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func writeRequest(w io.Writer, req contracts.ReloadRequest) error {
	b, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
