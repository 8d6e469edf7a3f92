package conversation

import "liftbot/lift"

const (
	DataConfirmSave   = "confirm_save"
	DataConfirmCancel = "confirm_cancel"
)

const commandList = `/setgoal — Set or change your fitness goal
/setunit — Set weight display (lbs or kg)
/track — Log a lift (free-form or step-by-step)
/recommend — Get a workout suggestion
/view — View your past lifts
/help — Show this help
/cancel — Cancel current action`

const (
	msgStart = "Hey! I'm LiftBot, your gym tracking buddy.\n\n*Commands:*\n" + commandList
	msgHelp  = "*LiftBot Commands*\n\n" + commandList

	msgSetUnitUsage   = "Usage: `/setunit lbs` or `/setunit kg`"
	msgSetUnitUpdated = "Weight display set to *%s*"
	msgSetGoalExample = "Set your fitness goal. Example:\n`/setgoal Build strength and add 20 lbs to my bench`"
	msgSetGoalUpdated = "Goal updated: *%s*"

	msgTrackStart = `Send your lift(s) in free-form. You can log one or multiple at once.
Examples:
• Bench press 3x5 at 135 lbs
• Bench 3x5 135, Squat 3x5 225, Deadlift 1x5 315
• Squat 225 for 5 reps`

	msgInvalidExercise = "Please enter a non-empty exercise name."
	msgInvalidCount    = "Please enter a number between 1 and 100."
	msgInvalidWeight   = "Please enter a reasonable weight in lbs (1–2000)."
	msgInvalidType     = "Invalid input. Please enter %s."

	msgConfirmQuestion = "Save %d lift(s)?\n\n*%s*"
	msgSaved           = "Saved: *%s*"
	msgSavedMulti      = "Saved %d lift(s)! Send another to log more, or use /view, /recommend, etc."
	msgContinue        = "Send another lift to log, or use /view, /recommend, etc. to switch."
	msgTrackCancelled  = "Cancelled. No lift saved."
	msgSaveFailed      = "Sorry, I couldn't save your lift(s). Please try /track again."

	msgViewEmpty = "No lifts recorded yet. Use /track to log one!"

	msgRecommendLoading = "Generating recommendation..."
	msgRefinePrompt     = "Send feedback to adjust the recommendation (e.g. 'make it shorter', 'swap squats for leg press'). Or use /track, /view, etc. to switch."

	msgCancel  = "Cancelled."
	msgFailure = "Sorry, something went wrong. Please try again."

	labelConfirm = "✓ Confirm"
	labelCancel  = "✗ Cancel"
)

var fillPrompts = map[lift.Field]string{
	lift.FieldExercise: "What exercise did you do?",
	lift.FieldSets:     "How many sets?",
	lift.FieldReps:     "How many reps per set?",
	lift.FieldWeight:   "What weight (in lbs)?",
}

// viewMaxLen is the longest /view reply before truncation.
const viewMaxLen = 4000
