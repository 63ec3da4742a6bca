package jobs

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"parking_reservation/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Consumer long-polls the export queue and runs the worker for each job.
// Messages are deleted only after the worker succeeds; failures become
// visible again after the visibility timeout and are retried by SQS.
type Consumer struct {
	client   sqsAPI
	queueURL string
	worker   *Worker
}

func NewConsumer(client sqsAPI, queueURL string, worker *Worker) *Consumer {
	return &Consumer{client: client, queueURL: queueURL, worker: worker}
}

func (c *Consumer) Start(ctx context.Context) {
	log.Printf("export consumer listening on queue: %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("export consumer: context cancelled, stopping")
			return
		default:
			result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
				QueueUrl:            aws.String(c.queueURL),
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
				VisibilityTimeout:   60,
			})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("export consumer: receive failed: %v", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, message := range result.Messages {
				if message.Body == nil {
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}

				var payload domain.ExportJobMessage
				if err := json.Unmarshal([]byte(*message.Body), &payload); err != nil {
					log.Printf("export consumer: dropping malformed message: %v", err)
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}

				if err := c.worker.RunExportJob(ctx, payload.JobID); err != nil {
					log.Printf("export consumer: job %d failed, will be redelivered: %v", payload.JobID, err)
					continue
				}
				c.deleteMessage(ctx, message.ReceiptHandle)
			}
		}
	}
}

func (c *Consumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		log.Printf("export consumer: delete failed: %v", err)
	}
}
