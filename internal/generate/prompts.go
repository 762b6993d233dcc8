package generate

import (
	"encoding/json"
	"strconv"
	"strings"

	"pblboard/api/internal/board"
)

// SystemPrompt frames every request.
const SystemPrompt = `You are a curriculum designer who specializes in Project-Based Learning (PBL) and Design Thinking.

Design principles:
- Projects are interdisciplinary, rooted in real problems of the students' community, and give students voice and choice.
- Design Thinking gives every project its shape: Empathize, Define, Ideate, Prototype & Test, with a milestone checkpoint closing each phase.
- Learning is experiential and dialogic (Dewey, Freire, bell hooks). Students act, reflect and act again. No lecture or worksheet is ever the main activity.
- Curriculum is rich, recursive, relational and rigorous (Doll). Ideas are revisited with growing depth and connected across subjects.
- Every project should satisfy the six High Quality PBL criteria: Intellectual Challenge & Accomplishment, Authenticity, Public Product, Collaboration, Project Management and Reflection.
- Every project should build the Deeper Learning competencies: core academic content, critical thinking, collaboration, communication, learning how to learn and academic mindsets.

Voice:
- Anything students will read (driving questions, milestones, activity instructions) is written at the reading level of the grade in the project context.
- Teacher-facing content such as standards and rationales may use professional language.

Format for board content:
- Use bulleted lists only, never prose paragraphs.
- Each point starts with a **bold title** on its own bullet line.
- The description goes on the next line as an indented sub-bullet, never on the title line.
- Aim for 3 to 6 top-level bullets per cell.
- Example:
  - **Community Mapping**
    - Walk the neighborhood and note resources and challenges
  - **Stakeholder Interviews**
    - Talk with neighbors affected by the issue`

const formatReminder = "Answer with a bulleted list. Put each **bold title** on its own line and its description on the next line as a sub-bullet. No prose paragraphs."

const noContent = "No content yet."

// studentFacing cells get a reading-level reminder when a grade is known.
var studentFacing = map[string]bool{
	"drivingQuestion": true, "empathize": true, "milestoneEmpathize": true,
	"define": true, "milestoneDefine": true, "ideate": true, "milestoneIdeate": true,
	"prototypeTest": true, "milestonePrototypeTest": true,
	"noticeReflect": true, "openingActivity": true,
}

var cellInstructions = map[string]string{
	"mainIdea": "Propose a main idea or topic for a PBL project. It should connect several subjects, matter in students' lives and hold up to weeks of inquiry.",
	"noticeReflect": "Design a Notice & Reflect activity in which students observe the topic, ask questions and share what they already know before the project starts.",
	"communityPartners": "Suggest community partners for this project: local organizations, businesses, experts or residents. " +
		"For each one say how they could take part (guest expert, site visit, mentor, materials, authentic audience). Use the location when one is given.",
	"openingActivity": "Create a hands-on hook that sparks curiosity, surfaces prior knowledge and ties the project to students' lives.",
	"drivingQuestion": `Write a driving question for this project. A strong driving question:
- **Is open-ended**: it cannot be answered with yes/no or a quick search
- **Serves the learning goals**: it leads to the standards the project targets
- **Invites inquiry**: students want to dig in, build and test
- **Names a real challenge**: something students can see in their community
Prefer "How can we..." or "How might we..." framing.`,
	"empathize":              "Design activities that help students understand the people affected by the problem through interviews, visits, primary sources or simulations rather than reading about it.",
	"milestoneEmpathize":     "Design the Empathize checkpoint: evidence that students understand who is affected and what those people care about (empathy maps, interview summaries, listening reflections).",
	"define":                 "Help students turn what they learned while empathizing into a specific, actionable problem statement that still leaves room for creative solutions.",
	"milestoneDefine":        "Design the Define checkpoint: a problem statement, a How Might We question or a root cause analysis shared with peers.",
	"ideate":                 "Design brainstorming activities that generate many possible solutions. Favor quantity and wild ideas and make sure every student is heard.",
	"milestoneIdeate":        "Design the Ideate checkpoint: evidence that students explored many ideas before choosing one (idea boards, selection matrix, short pitches).",
	"prototypeTest":          "Plan build-test-reflect-improve cycles in which students make something real and test it with actual users. The product is shared with an audience beyond the teacher.",
	"milestonePrototypeTest": "Design the final milestone: students present to community members, experts or stakeholders and reflect on their process, learning and impact.",
	"agendaEventsContent":    "Improve the activities for this agenda session. Make them concrete, hands-on and tied to the session's design phase, with clear steps and the materials needed.",
	"agendaReflection":       "Improve the reflection prompt for this agenda session. Use open questions that connect the day to the project goal and set up the next session.",
}

func contextLines(ctx board.Context) []string {
	var out []string
	if ctx.State != "" {
		out = append(out, "State: "+ctx.State)
	}
	if ctx.GradeLevel != "" {
		out = append(out, "Grade Level: "+ctx.GradeLevel)
	}
	if len(ctx.Subjects) > 0 {
		out = append(out, "Subjects: "+strings.Join(ctx.Subjects, ", "))
	}
	if ctx.Location != "" {
		out = append(out, "Location: "+ctx.Location)
	}
	return out
}

func writeContext(b *promptBuilder, ctx board.Context) {
	lines := contextLines(ctx)
	if len(lines) == 0 {
		return
	}
	b.line("Project Context:")
	b.line(lines...)
	b.blank()
}

type promptBuilder struct {
	lines []string
}

func (b *promptBuilder) line(lines ...string) { b.lines = append(b.lines, lines...) }
func (b *promptBuilder) blank()               { b.lines = append(b.lines, "") }
func (b *promptBuilder) String() string       { return strings.Join(b.lines, "\n") }

// GatherExisting lists every non-empty board cell as "Label: value".
func GatherExisting(c board.Content) string {
	ip, dt := c.InitialPlanning, c.DesignThinking
	var parts []string
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	add("Main Idea", ip.MainIdea.Value)
	for _, s := range ip.Standards {
		add(s.Label, s.Value)
	}
	add("Notice & Reflect", ip.NoticeReflect.Value)
	add("Community Partners", ip.CommunityPartners.Value)
	add("Opening Activity", ip.OpeningActivity.Value)
	add("Driving Question", dt.DrivingQuestion.Value)
	add("Empathize", dt.Empathize.Value)
	add("Milestone (Empathize)", dt.MilestoneEmpathize.Value)
	add("Define", dt.Define.Value)
	add("Milestone (Define)", dt.MilestoneDefine.Value)
	add("Ideate", dt.Ideate.Value)
	add("Milestone (Ideate)", dt.MilestoneIdeate.Value)
	add("Prototype & Test", dt.PrototypeTest.Value)
	add("Milestone (Prototype & Test)", dt.MilestonePrototypeTest.Value)
	if len(parts) == 0 {
		return noContent
	}
	return strings.Join(parts, "\n")
}

// SerializeBoard renders the whole board, empty cells included, for review prompts.
func SerializeBoard(c board.Content) string {
	ip, dt := c.InitialPlanning, c.DesignThinking
	or := func(v string) string {
		if v == "" {
			return "(empty)"
		}
		return v
	}
	parts := []string{"=== INITIAL PLANNING ===", "Main Idea: " + or(ip.MainIdea.Value)}
	if len(ip.Standards) == 0 {
		parts = append(parts, "Standards: (none configured)")
	}
	for _, s := range ip.Standards {
		parts = append(parts, s.Label+": "+or(s.Value))
	}
	parts = append(parts,
		"Notice & Reflect: "+or(ip.NoticeReflect.Value),
		"Community Partners: "+or(ip.CommunityPartners.Value),
		"Opening Activity: "+or(ip.OpeningActivity.Value),
		"\n=== DESIGN THINKING ===",
		"Driving Question: "+or(dt.DrivingQuestion.Value),
		"Empathize: "+or(dt.Empathize.Value),
		"Milestone (Empathize): "+or(dt.MilestoneEmpathize.Value),
		"Define: "+or(dt.Define.Value),
		"Milestone (Define): "+or(dt.MilestoneDefine.Value),
		"Ideate: "+or(dt.Ideate.Value),
		"Milestone (Ideate): "+or(dt.MilestoneIdeate.Value),
		"Prototype & Test: "+or(dt.PrototypeTest.Value),
		"Milestone (Prototype & Test): "+or(dt.MilestonePrototypeTest.Value),
	)
	if len(c.Agenda) > 0 {
		parts = append(parts, "\n=== AGENDA ===")
		for i, e := range c.Agenda {
			parts = append(parts, "Session "+strconv.Itoa(i+1)+": "+or(e.EventsContent))
		}
	}
	return strings.Join(parts, "\n")
}

// CellPrompt builds the request for suggestions on one cell. cellID may be a
// board cell key or one of the synthetic ids used for agenda fields, lesson
// sections and the board title.
func CellPrompt(cellID string, cell board.Cell, c board.Content, ctx board.Context, feedback string) string {
	var b promptBuilder
	kind := cellID
	if subject, ok := strings.CutPrefix(cellID, "standards-"); ok {
		kind = "standards"
		b.line("Suggest " + subject + " academic standards for this project, with codes where possible (CCSS, NGSS or state standards). " +
			"They should fit the project theme naturally.")
	} else if instr, ok := cellInstructions[cellID]; ok {
		b.line(instr)
	} else {
		b.line("Write content for the " + cell.Label + " section of a PBL design board.")
	}
	b.blank()
	writeContext(&b, ctx)

	if studentFacing[kind] && ctx.GradeLevel != "" {
		b.line("IMPORTANT: students will read this. Write at a Grade " + ctx.GradeLevel + " reading level with vocabulary and sentences suited to that age.")
		b.blank()
	}

	b.line("Current board content:", GatherExisting(c))
	b.blank()
	if cell.Value != "" {
		quoted, _ := json.Marshal(cell.Value)
		b.line("Current value for this cell: "+string(quoted), "Improve on it or offer alternatives.")
	} else {
		b.line("This cell is currently empty.")
	}
	b.blank()
	if feedback != "" {
		b.line("Teacher feedback: "+feedback,
			"Revise the content to address this feedback. Return exactly 1 suggestion with a short rationale.")
	} else {
		b.line("Return 1 to 3 specific, actionable suggestions with short plain-language rationales.")
	}
	b.line(formatReminder)
	return b.String()
}

// BoardPrompt asks for a complete board. previous and feedback are used together
// to request a revision.
func BoardPrompt(c board.Content, ctx board.Context, feedback string, previous *Variation) string {
	var b promptBuilder
	revising := feedback != "" && previous != nil
	if revising {
		b.line("Revise this PBL project variation using the teacher's feedback.")
	} else {
		b.line("Generate one complete PBL project variation for a design board.")
	}
	b.blank()
	writeContext(&b, ctx)
	if existing := GatherExisting(c); existing != noContent {
		b.line("The teacher already wrote some content. Treat it as constraints and build on it:", existing)
		b.blank()
	}
	if revising {
		b.line("Previous variation:",
			"Title: "+previous.Title,
			"Main Idea: "+previous.MainIdea,
			"Driving Question: "+previous.DrivingQuestion,
			"Empathize: "+previous.Empathize,
			"Define: "+previous.Define,
			"Ideate: "+previous.Ideate,
			"Prototype & Test: "+previous.PrototypeTest,
		)
		b.blank()
		b.line("Teacher feedback: "+feedback, "Keep what worked and address the feedback.")
		b.blank()
	}
	b.line("Fill every cell with one coherent project:", "- Main Idea / Topic")
	if len(ctx.Subjects) > 0 {
		for _, s := range ctx.Subjects {
			b.line("- " + board.StandardsLabel(s))
		}
	} else {
		b.line("- Standards")
	}
	b.line(
		"- Notice & Reflect",
		"- Community Partners",
		"- Opening Activity",
		"- Driving Question",
		"- Empathize",
		"- Milestone: Empathize (checkpoint after empathy work)",
		"- Define",
		"- Milestone: Define (checkpoint after defining the problem)",
		"- Ideate",
		"- Milestone: Ideate (checkpoint after ideation)",
		"- Prototype & Test",
		"- Milestone: Prototype & Test (final product and presentation)",
	)
	b.blank()
	b.line("The project must meet the High Quality PBL criteria.")
	if ctx.GradeLevel != "" {
		b.blank()
		b.line("IMPORTANT: write student-facing cells (driving question, milestones, activities) at a Grade " + ctx.GradeLevel + " reading level. Standards may use professional language.")
	}
	b.blank()
	b.line(formatReminder)
	return b.String()
}

func AgendaPrompt(c board.Content, ctx board.Context, numDays int) string {
	days := strconv.Itoa(numDays)
	var b promptBuilder
	b.line("Turn this PBL design board into a " + days + "-day agenda. Each day is one class session.")
	b.blank()
	writeContext(&b, ctx)
	b.line("Board content:", GatherExisting(c))
	b.blank()
	b.line("Create exactly "+days+" sessions in this order:",
		"1. **Day 1**: the Opening Activity and Notice & Reflect",
		"2. **Empathize**: empathize activities, closing with the Empathize milestone",
		"3. **Define**: define activities, closing with the Define milestone",
		"4. **Ideate**: ideation activities, closing with the Ideate milestone",
		"5. **Prototype & Test**: build and test cycles, closing with the final presentation",
	)
	b.blank()
	b.line("Spread the phases across the "+days+" days in proportion to their weight and land milestones at natural breaks.",
		"Give each session a title, concrete activities drawn from the board, its design phase and a reflection prompt.")
	b.blank()
	b.line("Format eventsContent as a bulleted list with each **bold title** on its own line and the description on the next line. Keep each session realistic for one class period.")
	return b.String()
}

// LessonRequest describes one lesson plan to generate.
type LessonRequest struct {
	Content       board.Content
	Context       board.Context
	Entry         board.AgendaEntry
	SessionIndex  int
	Subject       string
	PeriodMinutes int
}

func LessonPrompt(req LessonRequest) string {
	minutes := strconv.Itoa(req.PeriodMinutes)
	standards := "(no standards specified)"
	for _, s := range req.Content.InitialPlanning.Standards {
		if s.Label == board.StandardsLabel(req.Subject) && s.Value != "" {
			standards = s.Value
		}
	}
	activities := req.Entry.EventsContent
	if activities == "" {
		activities = "(no activities specified)"
	}

	var b promptBuilder
	b.line("Write a detailed "+req.Subject+" lesson plan for ONE class period.", "The period is "+minutes+" minutes long.")
	b.blank()
	b.line("This lesson belongs to Session " + strconv.Itoa(req.SessionIndex+1) + " of a PBL project.")
	if req.Entry.Date != "" {
		b.line("Design Thinking Phase: " + req.Entry.Date)
	}
	if req.Entry.Leads != "" {
		b.line("Session Title: " + req.Entry.Leads)
	}
	b.blank()
	b.line("Session activities from the agenda:", activities)
	b.blank()
	if req.Entry.Reflection != "" {
		b.line("Session reflection focus:", req.Entry.Reflection)
		b.blank()
	}
	writeContext(&b, req.Context)
	b.line(req.Subject+" standards on this board:", standards)
	b.blank()
	b.line("Full board content:", GatherExisting(req.Content))
	b.blank()
	b.line("Requirements:",
		"- The lesson moves the project forward; it is one period in a larger arc, not a standalone lesson.",
		"- Activities are student-centered and inquiry-driven. No lecture or worksheet as the main activity.",
		"- Students make real choices about their learning.",
		"- Collaboration is structured with clear roles, not just group work.",
		"- The warm-up connects to students' lives and activates prior knowledge by doing.",
		"- The closing asks students to reflect on their thinking.",
		"- Differentiation offers several entry points.",
		"- Time allocations, warm-up and closing included, add up to about "+minutes+" minutes.",
	)
	b.blank()
	if req.Context.GradeLevel != "" {
		b.line("IMPORTANT: write student-facing content at a Grade " + req.Context.GradeLevel + " reading level.")
		b.blank()
	}
	b.line(formatReminder)
	return b.String()
}

const collaboratorGuardrail = "Only help with the design board, curriculum, pedagogy, teaching, learning activities, standards, assessment or educational planning. " +
	"If the message is about anything else, decline politely, steer back to the project and return an empty proposedChanges list."

func CollaboratorPrompt(c board.Content, ctx board.Context, userMessage string) string {
	quoted, _ := json.Marshal(userMessage)
	var b promptBuilder
	b.line("You are a collaborator helping a teacher strengthen a PBL design board.")
	b.blank()
	b.line("## Scope", collaboratorGuardrail)
	b.blank()
	b.line("## Project Context")
	b.line(contextLines(ctx)...)
	b.blank()
	b.line("## Current Board", SerializeBoard(c))
	b.blank()
	b.line("## Valid cell ids for proposedChanges",
		"Initial Planning: mainIdea, noticeReflect, communityPartners, openingActivity")
	if len(ctx.Subjects) > 0 {
		ids := make([]string, len(ctx.Subjects))
		for i, s := range ctx.Subjects {
			ids[i] = board.StandardsCell{Subject: s}.Key()
		}
		b.line("Standards: " + strings.Join(ids, ", "))
	}
	b.line("Design Thinking: drivingQuestion, empathize, milestoneEmpathize, define, milestoneDefine, ideate, milestoneIdeate, prototypeTest, milestonePrototypeTest")
	b.blank()
	b.line("## Task", "The teacher says: "+string(quoted))
	b.blank()
	b.line("Reply with:",
		"1. `message`: your analysis, written as a colleague in markdown with ## or ### headings that separate strengths, growth areas and proposed changes.",
		"2. `proposedChanges`: cell edits you recommend. Each has `cellId` (from the list above), `cellLabel`, `currentValue` (copied exactly), `proposedValue` (the full new content) and a one or two sentence `rationale`.",
	)
	b.blank()
	b.line("## Guidelines",
		"- Be honest and encouraging. Say what already works before proposing anything.",
		"- Propose a change only when it is a real improvement. Zero changes is a fine answer for a strong board.",
		"- Prefer 1 to 3 high-impact changes over many small ones.",
		"- Ground the analysis in High Quality PBL, Design Thinking and Deeper Learning.",
		"- Match student-facing content to the grade level.",
		"- Empty cells may receive proposed content.",
		"- "+formatReminder,
	)
	return b.String()
}

// Lesson is the lesson plan view used by lesson-mode prompts.
type Lesson struct {
	ID            string              `json:"id"`
	AgendaEntryID string              `json:"agendaEntryId"`
	Subject       string              `json:"subject"`
	PeriodMinutes int                 `json:"periodMinutes"`
	Content       board.LessonContent `json:"content"`
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func LessonCollaboratorPrompt(c board.Content, ctx board.Context, lessons []Lesson, userMessage string) string {
	quoted, _ := json.Marshal(userMessage)
	dt := c.DesignThinking
	var b promptBuilder
	b.line("You are a friendly collaborator helping a teacher refine the lesson plans of a PBL project.",
		"Write like a colleague in the teachers' lounge: warm, clear and practical, in plain language without framework jargon.")
	b.blank()
	b.line("## Scope", collaboratorGuardrail)
	b.blank()
	b.line("## Project Context")
	b.line(contextLines(ctx)...)
	b.blank()
	b.line("## Project Summary")
	if v := c.InitialPlanning.MainIdea.Value; v != "" {
		b.line("Main Idea: " + v)
	}
	if v := dt.DrivingQuestion.Value; v != "" {
		b.line("Driving Question: " + v)
	}
	for _, phase := range []struct{ label, value string }{
		{"Empathize Phase", dt.Empathize.Value},
		{"Define Phase", dt.Define.Value},
		{"Ideate Phase", dt.Ideate.Value},
		{"Prototype/Test Phase", dt.PrototypeTest.Value},
	} {
		if phase.value != "" {
			b.line(phase.label + ": " + truncate(phase.value, 300))
		}
	}
	b.blank()

	var standards []string
	for _, s := range c.InitialPlanning.Standards {
		if strings.TrimSpace(s.Value) != "" {
			standards = append(standards, s.Label+": "+s.Value)
		}
	}
	if len(standards) > 0 {
		b.line("## Standards on the Board")
		b.line(standards...)
		b.blank()
	}

	b.line("## Current Lesson Plans")
	if len(lessons) == 0 {
		b.line("No lesson plans have been generated yet.")
		b.blank()
	}
	or := func(v string) string {
		if v == "" {
			return "(empty)"
		}
		return v
	}
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		title, phase := "Unknown Session", ""
		if entry, _, ok := c.AgendaEntry(l.AgendaEntryID); ok {
			if entry.Leads != "" {
				title = entry.Leads
			}
			phase = entry.Date
		}
		header := "--- Lesson: " + l.Subject + " (" + strconv.Itoa(l.PeriodMinutes) + " min), Session: " + title
		if phase != "" {
			header += " [" + phase + "]"
		}
		b.line(header + " [ID prefix: lesson-" + l.ID + "] ---")
		for _, f := range board.LessonFields {
			b.line(f.Label() + ": " + or(l.Content.Field(f)))
		}
		b.blank()
		ids = append(ids, "lesson-"+l.ID+"-{learningObjectives|materials|warmUpHook|mainActivities|closingExitTicket|differentiationNotes|standardsAddressed}")
	}

	b.line("## Valid cell ids for proposedChanges")
	if len(ids) == 0 {
		b.line("(No lessons available to modify yet)")
	} else {
		b.line(strings.Join(ids, ", "))
	}
	b.blank()
	b.line("## Task", "The teacher says: "+string(quoted))
	b.blank()
	b.line("Reply with:",
		"1. `message`: 4 to 6 plain sentences. Note what works, point out gaps gently and explain how a change helps students.",
		"2. `proposedChanges`: at most 3 lesson section edits, each with `cellId`, `cellLabel` (for example \"Math — Main Activities\"), `currentValue` (copied exactly), `proposedValue` (full content) and a short `rationale`.",
	)
	b.blank()
	b.line("## Guidelines",
		"- Propose a change only when it clearly helps. One or two is ideal.",
		"- Keep activities student-centered and inquiry-driven with no lecture or worksheet at the core.",
		"- Check that time allocations add up to the period length; label activities with durations such as **Gallery Walk (15 min)**.",
		"- Warm-ups connect to students' lives and closings ask students to reflect on their thinking.",
		"- Match student-facing content to the grade level.",
		"- "+formatReminder,
	)
	return b.String()
}

// CritiqueCriteria are the six High Quality PBL criteria, in order.
var CritiqueCriteria = []string{
	"Intellectual Challenge & Accomplishment",
	"Authenticity",
	"Public Product",
	"Collaboration",
	"Project Management",
	"Reflection",
}

func CritiquePrompt(c board.Content) string {
	var b promptBuilder
	b.line("Evaluate this PBL design board against the High Quality PBL framework, Design Thinking and the Deeper Learning competencies.")
	b.blank()
	b.line(SerializeBoard(c))
	b.blank()
	b.line("Rate each of the six criteria:")
	for i, name := range CritiqueCriteria {
		b.line(strconv.Itoa(i+1) + ". " + name)
	}
	b.blank()
	b.line("For each criterion give a rating (strong, developing or needs_attention), specific feedback, 1 to 3 concrete suggestions and the cells it concerns.",
		"Finish with an overall summary naming the most valuable next steps.")
	return b.String()
}

func StandardsPrompt(topic, state, gradeLevel string) string {
	var b promptBuilder
	b.line("Find academic standards relevant to:")
	b.blank()
	b.line("Topic: " + topic)
	if state != "" {
		b.line("State: " + state)
	}
	if gradeLevel != "" {
		b.line("Grade Level: " + gradeLevel)
	}
	b.blank()
	b.line("Return 1 to 3 suggestions of standards with their codes and descriptions.")
	return b.String()
}
