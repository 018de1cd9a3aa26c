package app

import (
	"github.com/yungbote/coursemap-backend/internal/platform/gcs"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/platform/openai"
	"github.com/yungbote/coursemap-backend/internal/platform/sendgrid"
	"github.com/yungbote/coursemap-backend/internal/platform/sessionlock"
)

type Clients struct {
	OpenAI   openai.Client
	SendGrid sendgrid.Client
	Bucket   gcs.BucketService
	Locker   sessionlock.Locker
}

// wireClients builds the outbound clients. OpenAI is required; mail and
// storage are optional so local development works without credentials
// (the routes they back are simply not mounted).
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, err
	}

	var mailer sendgrid.Client
	mailer, err = sendgrid.NewFromEnv(log)
	if err != nil {
		if !cfg.AuthBypass {
			return Clients{}, err
		}
		log.Warn("SendGrid not configured, login links will not be mailed", "error", err)
		mailer = nil
	}

	bucket, err := gcs.NewBucketService(log)
	if err != nil {
		log.Warn("Upload bucket not configured, upload routes disabled", "error", err)
		bucket = nil
	}

	return Clients{
		OpenAI:   openaiClient,
		SendGrid: mailer,
		Bucket:   bucket,
		Locker:   sessionlock.NewFromEnv(log),
	}, nil
}
