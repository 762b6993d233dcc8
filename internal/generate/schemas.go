package generate

import (
	"strings"

	"pblboard/api/internal/board"
)

func str(desc string) map[string]any {
	if desc == "" {
		return map[string]any{"type": "string"}
	}
	return map[string]any{"type": "string", "description": desc}
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func array(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func suggestionSchema() map[string]any {
	return object(map[string]any{
		"suggestions": array(object(map[string]any{
			"text":      str("The suggested content"),
			"rationale": str("Brief explanation of why this suggestion is valuable"),
		}, "text", "rationale")),
	}, "suggestions")
}

var variationFields = []string{
	"mainIdea", "noticeReflect", "communityPartners", "openingActivity",
	"drivingQuestion", "empathize", "milestoneEmpathize", "define", "milestoneDefine",
	"ideate", "milestoneIdeate", "prototypeTest", "milestonePrototypeTest",
}

// variationSchema asks for per-subject standards when the board has subjects.
func variationSchema(subjects []string) map[string]any {
	props := map[string]any{"title": str("A catchy, descriptive project title")}
	for _, f := range variationFields {
		props[f] = str("")
	}
	if len(subjects) > 0 {
		props["standards"] = array(object(map[string]any{
			"subject": str("One of: " + strings.Join(subjects, ", ")),
			"content": str("Relevant standards for this subject"),
		}, "subject", "content"))
	} else {
		props["standards"] = str("")
	}
	required := append([]string{"title", "standards"}, variationFields...)
	return object(props, required...)
}

func agendaSchema() map[string]any {
	return object(map[string]any{
		"sessions": array(object(map[string]any{
			"title":         str("Short session title"),
			"eventsContent": str("Activities for the session as a bulleted list"),
			"designPhase":   str("Design Thinking phase, e.g. Launch, Empathize, Define, Ideate, Prototype & Test"),
			"reflection":    str("Reflection prompt for the end of the session"),
		}, "title", "eventsContent", "designPhase", "reflection")),
	}, "sessions")
}

func lessonSchema() map[string]any {
	props := map[string]any{}
	required := make([]string, 0, len(board.LessonFields))
	for _, f := range board.LessonFields {
		props[string(f)] = str(f.Label())
		required = append(required, string(f))
	}
	return object(props, required...)
}

func collaboratorSchema() map[string]any {
	return object(map[string]any{
		"message": str("Analysis and response to the teacher, in markdown"),
		"proposedChanges": array(object(map[string]any{
			"cellId":        str("A valid cell id"),
			"cellLabel":     str("Human-readable cell label"),
			"currentValue":  str("Current cell content, copied exactly"),
			"proposedValue": str("The full proposed content"),
			"rationale":     str("One or two sentences on why the change helps"),
		}, "cellId", "cellLabel", "currentValue", "proposedValue", "rationale")),
	}, "message", "proposedChanges")
}

func critiqueSchema() map[string]any {
	return object(map[string]any{
		"overallSummary": str("Summary of the board's strengths and the most valuable next steps"),
		"criteria": array(object(map[string]any{
			"criterion": str("Name of the HQPBL criterion"),
			"rating": map[string]any{
				"type": "string",
				"enum": []string{RatingStrong, RatingDeveloping, RatingNeedsAttention},
			},
			"feedback":      str("Specific feedback"),
			"suggestions":   array(str("")),
			"relevantCells": array(str("")),
		}, "criterion", "rating", "feedback", "suggestions", "relevantCells")),
	}, "overallSummary", "criteria")
}
