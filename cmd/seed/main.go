package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"complianceiq/internal/model"
)

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "complianceiq"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(mongoDB)
	frameworkColl := db.Collection("frameworks")

	now := time.Now()
	fw := model.Framework{
		ID:      primitive.NewObjectID().Hex(),
		Version: "1.0",
		Title:   "Data Protection Readiness Assessment",
		Settings: model.FrameworkSettings{
			MaxFollowUps:          3,
			AvgSecondsPerQuestion: 30,
			FollowUpTriggers: []model.FollowUpTrigger{
				{QuestionType: model.QuestionTypeBoolean, OnNonCompliant: true},
				{QuestionType: model.QuestionTypeFreeText, MinWords: 10},
				{QuestionType: model.QuestionTypeSingleChoice, BelowScore: 50},
			},
		},
		Sections: []model.Section{
			{
				ID:       "governance",
				Title:    "Governance & Accountability",
				Order:    1,
				Category: "governance",
				Questions: []model.Question{
					{
						ID:             "GOV1",
						Text:           "Has your organization appointed a data protection officer or equivalent role?",
						Type:           model.QuestionTypeBoolean,
						Validation:     model.Validation{Required: true},
						Weight:         2,
						CompliantValue: boolPtr(true),
						TargetState:    "A named data protection officer with documented responsibilities",
					},
					{
						ID:   "GOV2",
						Text: "How often are your data protection policies reviewed?",
						Type: model.QuestionTypeSingleChoice,
						Options: []model.Option{
							{Value: "never", Label: "Never reviewed", Score: 0},
							{Value: "ad_hoc", Label: "Ad hoc, when issues arise", Score: 30},
							{Value: "annually", Label: "At least annually", Score: 80},
							{Value: "quarterly", Label: "Quarterly with sign-off", Score: 100},
						},
						Validation:  model.Validation{Required: true},
						Weight:      1.5,
						TargetState: "Policies reviewed quarterly with executive sign-off",
					},
					{
						ID:         "GOV3",
						Text:       "Describe how data protection responsibilities are communicated to staff.",
						Type:       model.QuestionTypeFreeText,
						Validation: model.Validation{Required: false, MinLength: 20, MaxLength: 2000},
						Weight:     1,
					},
				},
			},
			{
				ID:       "access-control",
				Title:    "Access Control",
				Order:    2,
				Category: "security",
				Questions: []model.Question{
					{
						ID:   "AC1",
						Text: "Which access control measures are in place for systems holding personal data?",
						Type: model.QuestionTypeMultiChoice,
						Options: []model.Option{
							{Value: "mfa", Label: "Multi-factor authentication", Score: 100},
							{Value: "rbac", Label: "Role-based access control", Score: 100},
							{Value: "reviews", Label: "Periodic access reviews", Score: 90},
							{Value: "shared_accounts", Label: "Shared accounts", Score: 0},
						},
						Validation:  model.Validation{Required: true},
						Weight:      2,
						TargetState: "MFA and role-based access on every system holding personal data",
					},
					{
						ID:             "AC2",
						Text:           "Are privileged accounts reviewed at least quarterly?",
						Type:           model.QuestionTypeBoolean,
						Validation:     model.Validation{Required: true},
						Weight:         1.5,
						CompliantValue: boolPtr(true),
						TargetState:    "Quarterly privileged-access reviews with remediation tracking",
					},
					{
						ID:          "AC3",
						Text:        "What percentage of employees completed security awareness training in the last 12 months?",
						Type:        model.QuestionTypeNumeric,
						Validation:  model.Validation{Required: true, Min: floatPtr(0), Max: floatPtr(100)},
						Weight:      1,
						ScaleMin:    0,
						ScaleMax:    100,
						TargetState: "100% of staff trained annually",
					},
				},
			},
			{
				ID:       "incident-response",
				Title:    "Incident Response",
				Order:    3,
				Category: "operations",
				Questions: []model.Question{
					{
						ID:             "IR1",
						Text:           "Do you have a documented incident response plan?",
						Type:           model.QuestionTypeBoolean,
						Validation:     model.Validation{Required: true},
						Weight:         2,
						CompliantValue: boolPtr(true),
						TargetState:    "A tested incident response plan covering notification deadlines",
					},
					{
						ID:          "IR2",
						Text:        "What percentage of incidents in the past year were contained within 24 hours?",
						Type:        model.QuestionTypeNumeric,
						Validation:  model.Validation{Required: false, Min: floatPtr(0), Max: floatPtr(100)},
						Weight:      1,
						ScaleMin:    0,
						ScaleMax:    100,
						TargetState: "All incidents contained within 24 hours",
					},
					{
						ID:         "IR3",
						Text:       "Describe your most recent incident response exercise and its outcome.",
						Type:       model.QuestionTypeFreeText,
						Validation: model.Validation{Required: false, MaxLength: 4000},
						Weight:     1,
					},
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := fw.Validate(); err != nil {
		log.Fatalf("Seed framework invalid: %v", err)
	}

	_, err = frameworkColl.InsertOne(ctx, fw)
	if err != nil {
		log.Fatalf("Failed to insert framework: %v", err)
	}

	fmt.Printf("Successfully created framework '%s' (%s)\n", fw.Title, fw.ID)
}
