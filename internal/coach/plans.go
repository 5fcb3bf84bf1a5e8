package coach

import (
	"context"
	"math"
	"slices"

	"github.com/claude/scanflow/internal/apperr"
	"github.com/claude/scanflow/internal/document"
)

// Training focus labels.
const (
	FocusHypertrophy = "Hypertrophy Phase 1"
	FocusHybrid      = "Hybrid Athlete (Run + Lift)"
	FocusRecovery    = "Injury Recovery / Deload"

	RecoveryDayType = "Mobility & Stretch"
)

const (
	defaultWeightKg  = 75.0
	defaultBMI       = 23.4
	defaultBMR       = 2000.0
	calorieSurplus   = 500.0
	defaultDietType  = "balanced"
	enduranceGoalKey = "endurance"
)

// SegmentalAnalysis is the per-region part of a scan.
type SegmentalAnalysis struct {
	TorsoFat float64 `json:"torsoFat"`
}

// DigitalTwin is the latest body-composition snapshot.
type DigitalTwin struct {
	Timestamp         string            `json:"timestamp"`
	Weight            float64           `json:"weight"`
	BodyFat           float64           `json:"bodyFat"`
	MuscleMass        float64           `json:"muscleMass"`
	BMI               float64           `json:"bmi"`
	BMRKcal           float64           `json:"bmrKcal"`
	SegmentalAnalysis SegmentalAnalysis `json:"segmentalAnalysis"`
	ScanURL           string            `json:"scanUrl,omitempty"`
}

// ManualMetrics are user-entered measurements accompanying a scan.
type ManualMetrics struct {
	Weight *float64 `json:"weight,omitempty"`
}

// ScanInput is the scan ingestion payload.
type ScanInput struct {
	ScanFileURL   string         `json:"scanFileUrl"`
	ManualMetrics *ManualMetrics `json:"manualMetrics,omitempty"`
}

// ScanResult is the reply of ProcessScan.
type ScanResult struct {
	Status        string      `json:"status"`
	DigitalTwinID string      `json:"digitalTwinId"`
	Metrics       DigitalTwin `json:"metrics"`
}

// ProcessScan replaces the caller's digital twin with one derived from the
// scan and any manual metrics.
func (s *Service) ProcessScan(ctx context.Context, in ScanInput) (*ScanResult, error) {
	uid, err := CallerUID(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Get(ctx, uid)
	if err != nil {
		return nil, StoreError(err, "loading profile")
	}

	weight := defaultWeightKg
	if in.ManualMetrics != nil && in.ManualMetrics.Weight != nil && *in.ManualMetrics.Weight > 0 {
		weight = *in.ManualMetrics.Weight
	}

	twin := DigitalTwin{
		Timestamp:         s.timestamp(),
		Weight:            weight,
		BodyFat:           18.5,
		MuscleMass:        42.1,
		BMI:               bmi(weight, doc),
		BMRKcal:           1800,
		SegmentalAnalysis: SegmentalAnalysis{TorsoFat: 12.0},
		ScanURL:           in.ScanFileURL,
	}

	if err := s.docs.Update(ctx, uid,
		document.Set("digitalTwin", twin),
		document.Set("updatedAt", document.ServerTimestamp),
	); err != nil {
		return nil, StoreError(err, "saving digital twin")
	}
	s.log.Info("scan processed", "uid", uid, "weight", weight)
	return &ScanResult{Status: "success", DigitalTwinID: "latest", Metrics: twin}, nil
}

// bmi uses the profile height in centimetres when one was submitted.
func bmi(weight float64, doc document.Doc) float64 {
	h, ok := document.Number(doc, "heightCm")
	if !ok {
		h, ok = document.Number(doc, "height")
	}
	if !ok || h <= 0 {
		return defaultBMI
	}
	m := h / 100
	return math.Round(weight/(m*m)*10) / 10
}

// PlannedExercise is one exercise of a training day.
type PlannedExercise struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
	Reps string `json:"reps"`
}

// TrainingDay is one entry of the training schedule.
type TrainingDay struct {
	Day       string            `json:"day"`
	Type      string            `json:"type"`
	Exercises []PlannedExercise `json:"exercises"`
}

// TrainingPlan is the stored training plan.
type TrainingPlan struct {
	PlanID     string        `json:"planId"`
	CycleFocus string        `json:"cycleFocus"`
	StartDate  string        `json:"startDate"`
	Schedule   []TrainingDay `json:"schedule"`
}

// TrainingPlanResult is the reply of GenerateTrainingPlan.
type TrainingPlanResult struct {
	Status string       `json:"status"`
	Plan   TrainingPlan `json:"plan"`
}

// GenerateTrainingPlan writes a new training plan chosen from the caller's goals.
func (s *Service) GenerateTrainingPlan(ctx context.Context) (*TrainingPlanResult, error) {
	uid, err := CallerUID(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Get(ctx, uid)
	if err != nil {
		return nil, StoreError(err, "loading profile")
	}

	id, err := newID("plan_")
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "generating training plan")
	}
	focus := FocusHypertrophy
	if slices.Contains(document.Strings(doc, "goals"), enduranceGoalKey) {
		focus = FocusHybrid
	}
	plan := TrainingPlan{
		PlanID:     id,
		CycleFocus: focus,
		StartDate:  s.timestamp(),
		Schedule: []TrainingDay{
			{Day: "Monday", Type: "Push", Exercises: []PlannedExercise{{Name: "Bench Press", Sets: 3, Reps: "8-12"}}},
			{Day: "Tuesday", Type: "Pull", Exercises: []PlannedExercise{{Name: "Pull Ups", Sets: 3, Reps: "Failure"}}},
		},
	}

	if err := s.docs.Update(ctx, uid,
		document.Set("trainingPlan", plan),
		document.Set("updatedAt", document.ServerTimestamp),
	); err != nil {
		return nil, StoreError(err, "saving training plan")
	}
	s.log.Info("training plan generated", "uid", uid, "focus", focus)
	return &TrainingPlanResult{Status: "success", Plan: plan}, nil
}

// Macros are daily macronutrient targets in grams.
type Macros struct {
	Protein int `json:"p"`
	Carbs   int `json:"c"`
	Fat     int `json:"f"`
}

// Meal is a suggested meal.
type Meal struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
}

// NutritionPlan is the stored nutrition plan.
type NutritionPlan struct {
	Type            string  `json:"type"`
	DailyCalories   float64 `json:"dailyCalories"`
	Macros          Macros  `json:"macros"`
	DietType        string  `json:"dietType"`
	MealSuggestions []Meal  `json:"mealSuggestions"`
}

// NutritionInput is the nutrition plan request.
type NutritionInput struct {
	DietType string `json:"dietType"`
}

// NutritionPlanResult is the reply of GenerateNutritionPlan.
type NutritionPlanResult struct {
	Status string        `json:"status"`
	Plan   NutritionPlan `json:"plan"`
}

// GenerateNutritionPlan writes a nutrition plan targeting the digital twin's
// BMR plus a fixed surplus.
func (s *Service) GenerateNutritionPlan(ctx context.Context, in NutritionInput) (*NutritionPlanResult, error) {
	uid, err := CallerUID(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Get(ctx, uid)
	if err != nil {
		return nil, StoreError(err, "loading profile")
	}

	bmr, ok := document.Number(doc, "digitalTwin.bmrKcal")
	if !ok {
		bmr = defaultBMR
	}
	diet := in.DietType
	if diet == "" {
		diet = defaultDietType
	}
	plan := NutritionPlan{
		Type:          "nutrition",
		DailyCalories: bmr + calorieSurplus,
		Macros:        Macros{Protein: 180, Carbs: 250, Fat: 70},
		DietType:      diet,
		MealSuggestions: []Meal{
			{Name: "Protein Oats", Calories: 500},
			{Name: "Chicken/Tofu Salad", Calories: 700},
		},
	}

	if err := s.docs.Update(ctx, uid,
		document.Set("nutritionPlan", plan),
		document.Set("updatedAt", document.ServerTimestamp),
	); err != nil {
		return nil, StoreError(err, "saving nutrition plan")
	}
	s.log.Info("nutrition plan generated", "uid", uid, "dailyCalories", plan.DailyCalories)
	return &NutritionPlanResult{Status: "success", Plan: plan}, nil
}
