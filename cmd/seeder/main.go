package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/config"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/events"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/storage"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
	"go.uber.org/zap"
)

// Seeds a tenant schema with demo outreach data and optionally fires an
// enrollment request at the running service so the whole pipeline can be
// exercised locally.
func main() {
	time.Local = time.UTC

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	companyID := flag.String("company", cfg.Company.ID, "Company ID (tenant) to seed")
	leadCount := flag.Int("leads", 50, "Number of leads to create")
	contactCount := flag.Int("district-contacts", 10, "Number of district contacts to create")
	stepCount := flag.Int("steps", 3, "Number of steps in the seeded sequence")
	enroll := flag.Bool("enroll", false, "Publish an enrollment request for the seeded data via NATS")
	natsURL := flag.String("url", cfg.NATS.URL, "NATS server URL (used with -enroll)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Outreach CRM Seeder\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Seeds leads, district contacts, a sequence and an active campaign for one tenant.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *companyID == "" {
		logger.Log.Fatal("No company ID provided; set -company or COMPANY_ID")
	}
	if *leadCount <= 0 && *contactCount <= 0 {
		logger.Log.Fatal("Nothing to seed; both -leads and -district-contacts are zero")
	}

	gofakeit.Seed(time.Now().UnixNano())

	logger.Log.Info("Starting seeder",
		zap.String("company_id", *companyID),
		zap.Int("leads", *leadCount),
		zap.Int("district_contacts", *contactCount),
		zap.Int("steps", *stepCount),
		zap.Bool("enroll", *enroll),
	)

	postgresRepo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, true, *companyID)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	ctx := tenant.WithCompanyID(context.Background(), *companyID)
	ctx = logger.WithLogger(ctx, logger.Log)

	leadRepo := storage.NewLeadRepoAdapter(postgresRepo)
	districtContactRepo := storage.NewDistrictContactRepoAdapter(postgresRepo)
	sequenceRepo := storage.NewSequenceRepoAdapter(postgresRepo)
	campaignRepo := storage.NewCampaignRepoAdapter(postgresRepo)

	leads := make([]model.Lead, 0, *leadCount)
	for i := 0; i < *leadCount; i++ {
		leads = append(leads, *model.NewLead(&model.Lead{CompanyID: *companyID, Origin: "seeder"}))
	}
	if len(leads) > 0 {
		if err := leadRepo.BulkUpsert(ctx, leads); err != nil {
			logger.Log.Fatal("Failed to seed leads", zap.Error(err))
		}
		logger.Log.Info("Seeded leads", zap.Int("count", len(leads)))
	}

	contacts := make([]model.DistrictContact, 0, *contactCount)
	for i := 0; i < *contactCount; i++ {
		contacts = append(contacts, *model.NewDistrictContact(&model.DistrictContact{CompanyID: *companyID}))
	}
	if len(contacts) > 0 {
		if err := districtContactRepo.BulkUpsert(ctx, contacts); err != nil {
			logger.Log.Fatal("Failed to seed district contacts", zap.Error(err))
		}
		logger.Log.Info("Seeded district contacts", zap.Int("count", len(contacts)))
	}

	sequence := model.NewOutreachSequence(*companyID, *stepCount)
	if err := sequenceRepo.Save(ctx, *sequence); err != nil {
		logger.Log.Fatal("Failed to seed sequence", zap.Error(err))
	}
	logger.Log.Info("Seeded sequence", zap.String("sequence_id", sequence.ID), zap.Int("steps", len(sequence.Steps)))

	campaign := model.NewCampaign(*companyID, sequence.ID)
	if err := campaignRepo.Save(ctx, *campaign); err != nil {
		logger.Log.Fatal("Failed to seed campaign", zap.Error(err))
	}
	logger.Log.Info("Seeded campaign",
		zap.String("campaign_id", campaign.ID),
		zap.String("name", campaign.Name),
	)

	if *enroll {
		publishEnrollmentRequest(cfg, *natsURL, *companyID, campaign.ID, leads, contacts)
	}

	if err := postgresRepo.Close(ctx); err != nil {
		logger.Log.Warn("Failed to close Postgres connection", zap.Error(err))
	}

	logger.Log.Info("Seeding complete",
		zap.String("company_id", *companyID),
		zap.String("campaign_id", campaign.ID),
	)
}

// publishEnrollmentRequest sends one enrollment.requested message covering
// every seeded recipient.
func publishEnrollmentRequest(cfg *config.Config, natsURL, companyID, campaignID string, leads []model.Lead, contacts []model.DistrictContact) {
	client, err := events.NewClient(natsURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to NATS", zap.String("url", natsURL), zap.Error(err))
	}
	defer client.Close()

	payload := &model.EnrollmentRequestPayload{
		RequestID:  uuid.New().String(),
		CompanyID:  companyID,
		CampaignID: campaignID,
	}
	for _, lead := range leads {
		payload.LeadIDs = append(payload.LeadIDs, lead.ID)
	}
	for _, contact := range contacts {
		payload.DistrictContactIDs = append(payload.DistrictContactIDs, contact.ID)
	}

	subject := fmt.Sprintf("%s.%s.%s", cfg.NATS.SubjectPrefix, model.EventEnrollmentRequested, companyID)
	headers := map[string]string{"CompanyID": companyID}
	if err := client.Publish(subject, utils.MustMarshalJSON(payload), headers); err != nil {
		logger.Log.Fatal("Failed to publish enrollment request", zap.String("subject", subject), zap.Error(err))
	}

	logger.Log.Info("Published enrollment request",
		zap.String("subject", subject),
		zap.String("request_id", payload.RequestID),
		zap.Int("recipients", len(payload.LeadIDs)+len(payload.DistrictContactIDs)),
	)
}
