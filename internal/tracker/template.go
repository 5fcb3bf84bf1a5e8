// Package tracker implements the device-side workout flow: per-exercise set
// entry, workout completion into an append-only history, and history reads.
// All state lives in a kv.Store.
package tracker

import "strings"

// Exercise is one entry of a workout template.
type Exercise struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MuscleGroup string `json:"muscleGroup"`
	TargetSets  int    `json:"sets"`
	TargetReps  string `json:"reps"`
}

// Workout is a day label and its ordered exercises.
type Workout struct {
	ID        string     `json:"id"`
	Day       string     `json:"day"`
	Exercises []Exercise `json:"exercises"`
}

var weekTemplate = []Workout{
	{
		ID:  "workout-1",
		Day: "Monday",
		Exercises: []Exercise{
			{ID: "bench-press", Name: "Bench Press", MuscleGroup: "Chest", TargetSets: 4, TargetReps: "8-12"},
			{ID: "incline-press", Name: "Incline Bench Press", MuscleGroup: "Upper Chest", TargetSets: 3, TargetReps: "10-12"},
			{ID: "dumbbell-flys", Name: "Dumbbell Flys", MuscleGroup: "Chest", TargetSets: 3, TargetReps: "12-15"},
			{ID: "tricep-dips", Name: "Tricep Dips", MuscleGroup: "Triceps", TargetSets: 3, TargetReps: "10-15"},
			{ID: "tricep-pushdowns", Name: "Tricep Pushdowns", MuscleGroup: "Triceps", TargetSets: 3, TargetReps: "12-15"},
		},
	},
	{
		ID:  "workout-2",
		Day: "Wednesday",
		Exercises: []Exercise{
			{ID: "squats", Name: "Barbell Squats", MuscleGroup: "Legs", TargetSets: 4, TargetReps: "8-10"},
			{ID: "leg-press", Name: "Leg Press", MuscleGroup: "Legs", TargetSets: 3, TargetReps: "10-12"},
			{ID: "leg-curls", Name: "Leg Curls", MuscleGroup: "Hamstrings", TargetSets: 3, TargetReps: "12-15"},
			{ID: "calf-raises", Name: "Calf Raises", MuscleGroup: "Calves", TargetSets: 4, TargetReps: "15-20"},
		},
	},
	{
		ID:  "workout-3",
		Day: "Friday",
		Exercises: []Exercise{
			{ID: "pull-ups", Name: "Pull-Ups", MuscleGroup: "Back", TargetSets: 4, TargetReps: "8-10"},
			{ID: "barbell-rows", Name: "Barbell Rows", MuscleGroup: "Back", TargetSets: 3, TargetReps: "10-12"},
			{ID: "lat-pulldown", Name: "Lat Pulldown", MuscleGroup: "Lats", TargetSets: 3, TargetReps: "12-15"},
			{ID: "bicep-curls", Name: "Bicep Curls", MuscleGroup: "Biceps", TargetSets: 3, TargetReps: "12-15"},
		},
	},
}

// WeekTemplate returns a copy of the static weekly workout template.
func WeekTemplate() []Workout {
	out := make([]Workout, len(weekTemplate))
	for i, w := range weekTemplate {
		w.Exercises = append([]Exercise(nil), w.Exercises...)
		out[i] = w
	}
	return out
}

// FindWorkout returns the template workout for a day label (case-insensitive)
// or workout id.
func FindWorkout(day string) (Workout, bool) {
	for _, w := range WeekTemplate() {
		if strings.EqualFold(w.Day, day) || w.ID == day {
			return w, true
		}
	}
	return Workout{}, false
}

// FindExercise returns the template exercise with the given id.
func FindExercise(id string) (Exercise, bool) {
	for _, w := range weekTemplate {
		for _, e := range w.Exercises {
			if e.ID == id {
				return e, true
			}
		}
	}
	return Exercise{}, false
}
