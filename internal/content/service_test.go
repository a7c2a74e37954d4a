package content

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mcq-practice/backend/internal/docstore"
	"github.com/mcq-practice/backend/internal/events"
	"github.com/mcq-practice/backend/internal/generator"
	"github.com/mcq-practice/backend/internal/models"
)

type fakeInvalidator struct {
	chapters []string
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, chapterID string) error {
	f.chapters = append(f.chapters, chapterID)
	return nil
}

// countFailStore fails every Count on the chapters collection.
type countFailStore struct {
	docstore.Store
}

func (s countFailStore) Count(ctx context.Context, collection string, filter docstore.Filter) (int64, error) {
	if collection == models.CollectionChapters {
		return 0, errors.New("count unavailable")
	}
	return s.Store.Count(ctx, collection, filter)
}

type fixture struct {
	svc    *Service
	docs   *docstore.MemoryStore
	events *events.Recorder
	cache  *fakeInvalidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docs := docstore.NewMemoryStore()
	f := &fixture{docs: docs, events: &events.Recorder{}, cache: &fakeInvalidator{}}
	f.svc = NewService(NewStore(docs), f.cache, f.events, generator.NewWithClient(generator.NewMockClient(), "mock", false))
	f.svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	put(t, docs, models.CollectionSubjects, "math", models.Subject{Title: "Mathematics", ClassLevel: "Class 8", ChapterCount: 9, Progress: 40})
	put(t, docs, models.CollectionSubjects, "sci", models.Subject{Title: "Science", ClassLevel: "Class 8"})
	put(t, docs, models.CollectionSubjects, "hist", models.Subject{Title: "History", ClassLevel: "Class 9"})
	put(t, docs, models.CollectionChapters, "alg", models.Chapter{Title: "Algebra", SubjectID: "math", Duration: "45 min"})
	put(t, docs, models.CollectionChapters, "geo", models.Chapter{Title: "Geometry", SubjectID: "math", Duration: "45 min"})
	put(t, docs, models.CollectionTopics, "lin", models.Topic{Title: "Linear equations", ChapterID: "alg", SubjectID: "math"})
	return f
}

func put(t *testing.T, docs docstore.Store, coll, id string, doc interface{}) {
	t.Helper()
	if err := docs.Put(context.Background(), coll, id, doc); err != nil {
		t.Fatalf("Put %s/%s: %v", coll, id, err)
	}
}

func uploadItem(correct int) models.UploadQuestion {
	return models.UploadQuestion{
		Question:      "What is 2 + 2?",
		Options:       []string{"3", "4", "5", "6"},
		CorrectAnswer: correct,
	}
}

func TestListSubjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.svc.ListSubjects(ctx, "Class 8", "", "")
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d subjects, want 2", len(all))
	}
	if all[0].ID != "math" || all[0].ChapterCount != 2 {
		t.Errorf("math = %+v, want live chapter count 2", all[0])
	}

	tests := []struct {
		search, status string
		want           []string
	}{
		{"MATH", "all", []string{"math"}},
		{"ence", "", []string{"sci"}},
		{"", StatusStarted, []string{"math"}},
		{"", StatusNew, []string{"sci"}},
		{"history", "", nil},
	}
	for _, tt := range tests {
		got, err := f.svc.ListSubjects(ctx, "Class 8", tt.search, tt.status)
		if err != nil {
			t.Fatalf("ListSubjects(%q, %q): %v", tt.search, tt.status, err)
		}
		var ids []string
		for _, s := range got {
			ids = append(ids, s.ID)
		}
		if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
			t.Errorf("ListSubjects(%q, %q) = %v, want %v", tt.search, tt.status, ids, tt.want)
		}
	}

	if _, err := f.svc.ListSubjects(ctx, "Class 99", "", ""); !errors.Is(err, ErrInvalidClassLevel) {
		t.Errorf("bad class level: %v", err)
	}
	if _, err := f.svc.ListSubjects(ctx, "Class 8", "", "finished"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bad status: %v", err)
	}
}

func TestListSubjects_CountFailureKeepsStoredValue(t *testing.T) {
	f := newFixture(t)
	svc := NewService(NewStore(countFailStore{f.docs}), nil, nil, nil)

	got, err := svc.ListSubjects(context.Background(), "Class 8", "math", "")
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(got) != 1 || got[0].ChapterCount != 9 {
		t.Errorf("got %+v, want stored chapter count 9", got)
	}
}

func TestAddSubject_Duplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddSubject(ctx, models.CreateSubjectRequest{Title: "  Mathematics ", ClassLevel: "Class 8"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if err.Error() != `Subject "Mathematics" already exists in Class 8!` {
		t.Errorf("message = %q", err.Error())
	}

	// same title in another class is fine
	sub, err := f.svc.AddSubject(ctx, models.CreateSubjectRequest{Title: "Mathematics", ClassLevel: "Class 9"})
	if err != nil {
		t.Fatalf("AddSubject: %v", err)
	}
	if sub.ID == "" || sub.ChapterCount != 0 || sub.Progress != 0 {
		t.Errorf("new subject = %+v", sub)
	}

	if _, err := f.svc.AddSubject(ctx, models.CreateSubjectRequest{Title: "   ", ClassLevel: "Class 9"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank title: %v", err)
	}
	if _, err := f.svc.AddSubject(ctx, models.CreateSubjectRequest{Title: "Art", ClassLevel: "Year 3"}); !errors.Is(err, ErrInvalidClassLevel) {
		t.Errorf("bad class level: %v", err)
	}

	if got := f.events.Types(); len(got) != 1 || got[0] != events.ContentChanged {
		t.Errorf("events = %v", got)
	}
}

func TestAddChapterAndTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddChapter(ctx, models.CreateChapterRequest{Title: "Algebra", SubjectID: "math"})
	if !errors.Is(err, ErrDuplicate) || err.Error() != `Chapter "Algebra" already exists in this subject!` {
		t.Errorf("duplicate chapter: %v", err)
	}

	ch, err := f.svc.AddChapter(ctx, models.CreateChapterRequest{Title: "Algebra", SubjectID: "sci"})
	if err != nil {
		t.Fatalf("AddChapter: %v", err)
	}
	if ch.IsLocked || ch.Duration != "45 min" {
		t.Errorf("new chapter = %+v", ch)
	}
	if _, err := f.svc.AddChapter(ctx, models.CreateChapterRequest{Title: "X", SubjectID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing subject: %v", err)
	}

	_, err = f.svc.AddTopic(ctx, models.CreateTopicRequest{Title: "Linear equations", ChapterID: "alg", SubjectID: "math"})
	if !errors.Is(err, ErrDuplicate) || err.Error() != "Topic already exists in this chapter." {
		t.Errorf("duplicate topic: %v", err)
	}
	if _, err := f.svc.AddTopic(ctx, models.CreateTopicRequest{Title: "Angles", ChapterID: "geo", SubjectID: "sci"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("mismatched subject: %v", err)
	}

	topic, err := f.svc.AddTopic(ctx, models.CreateTopicRequest{Title: "Angles", ChapterID: "geo", SubjectID: "math"})
	if err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	if len(f.cache.chapters) != 1 || f.cache.chapters[0] != "geo" {
		t.Errorf("invalidated %v, want [geo]", f.cache.chapters)
	}

	if err := f.svc.DeleteTopic(ctx, topic.ID); err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}
	if err := f.svc.DeleteTopic(ctx, topic.ID); err != nil {
		t.Errorf("second delete should be a no-op: %v", err)
	}
	topics, _ := f.svc.Topics(ctx, "geo")
	if len(topics) != 0 {
		t.Errorf("topics after delete = %v", topics)
	}
}

func TestDeleteChapter_DoesNotCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.DeleteChapter(ctx, "alg"); err != nil {
		t.Fatalf("DeleteChapter: %v", err)
	}
	chapters, _ := f.svc.Chapters(ctx, "math")
	if len(chapters) != 1 || chapters[0].ID != "geo" {
		t.Errorf("chapters = %+v", chapters)
	}
	topics, _ := f.svc.Topics(ctx, "alg")
	if len(topics) != 1 {
		t.Errorf("topics of deleted chapter = %d, want 1", len(topics))
	}
	if len(f.cache.chapters) != 1 || f.cache.chapters[0] != "alg" {
		t.Errorf("invalidated %v", f.cache.chapters)
	}
}

func TestFormulas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := models.FormulaRequest{SubjectID: "math", ChapterID: "alg", Title: "Square", Content: `$(a+b)^{2} = a^2 + 2ab + b^2`}
	resp, err := f.svc.CreateFormula(ctx, req)
	if err != nil {
		t.Fatalf("CreateFormula: %v", err)
	}
	if resp.Warning != WarnUnevenDollars {
		t.Errorf("warning = %q", resp.Warning)
	}
	if resp.Formula.ClassLevel != "Class 8" || resp.Formula.CreatedAt != 1700000000000 {
		t.Errorf("formula = %+v", resp.Formula)
	}

	req.Content = `\frac{a}{b`
	if _, err := f.svc.CreateFormula(ctx, req); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("brace error should reject: %v", err)
	}

	updated, err := f.svc.UpdateFormula(ctx, resp.Formula.ID, models.FormulaRequest{Title: "Square of a sum", Content: `$(a+b)^{2}$`, ChapterID: "ignored"})
	if err != nil {
		t.Fatalf("UpdateFormula: %v", err)
	}
	if updated.Formula.Title != "Square of a sum" || updated.Formula.ChapterID != "alg" || updated.Warning != "" {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := f.svc.UpdateFormula(ctx, "missing", models.FormulaRequest{Title: "t", Content: "c"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: %v", err)
	}
	if _, err := f.svc.UpdateFormula(ctx, resp.Formula.ID, models.FormulaRequest{Title: "t", Content: "}"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("update with brace error: %v", err)
	}

	list, _ := f.svc.Formulas(ctx, "alg")
	if len(list) != 1 {
		t.Fatalf("formulas = %d", len(list))
	}
	if err := f.svc.DeleteFormula(ctx, resp.Formula.ID); err != nil {
		t.Fatalf("DeleteFormula: %v", err)
	}
	list, _ = f.svc.Formulas(ctx, "alg")
	if len(list) != 0 {
		t.Errorf("formulas after delete = %d", len(list))
	}
}

func TestBulkUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	withExplanation := uploadItem(2)
	withExplanation.Explanation = "2 + 2 = 4"

	resp, err := f.svc.BulkUpload(ctx, models.BulkUploadRequest{
		SubjectID: "math",
		ChapterID: "alg",
		TopicID:   "lin",
		Questions: []models.UploadQuestion{withExplanation, uploadItem(1)},
	})
	if err != nil {
		t.Fatalf("BulkUpload: %v", err)
	}
	if resp.Uploaded != 2 || resp.Message != "2 Questions uploaded successfully!" {
		t.Errorf("resp = %+v", resp)
	}

	questions, err := NewStore(f.docs).ChapterQuestions(ctx, "alg")
	if err != nil || len(questions) != 2 {
		t.Fatalf("stored questions = %d, %v", len(questions), err)
	}
	if !questions[0].HasTopic("lin") || questions[0].Explanation != "2 + 2 = 4" || questions[1].Explanation != "" {
		t.Errorf("stored = %+v", questions)
	}
	if questions[0].ID != resp.QuestionIDs[0] {
		t.Errorf("ids out of order: %s vs %s", questions[0].ID, resp.QuestionIDs[0])
	}

	if len(f.cache.chapters) != 1 || f.cache.chapters[0] != "alg" {
		t.Errorf("invalidated %v", f.cache.chapters)
	}
	if got := f.events.Types(); len(got) != 1 || got[0] != events.QuestionsUploaded {
		t.Errorf("events = %v", got)
	}
}

func TestBulkUpload_RejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	noOptions := uploadItem(1)
	noOptions.Options = nil

	_, err := f.svc.BulkUpload(ctx, models.BulkUploadRequest{
		SubjectID: "math",
		ChapterID: "alg",
		Questions: []models.UploadQuestion{uploadItem(1), uploadItem(5), uploadItem(0), noOptions},
	})
	var ie *InputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InputError, got %v", err)
	}

	joined := strings.Join(ie.Details, "\n")
	for _, want := range []string{
		"questions[1].correctAnswer 5 is outside 1-4",
		"questions[2].correctAnswer is required",
		"questions[3].options is required",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("details missing %q:\n%s", want, joined)
		}
	}

	n, _ := f.docs.Count(ctx, models.CollectionQuestions, docstore.Filter{})
	if n != 0 {
		t.Errorf("%d questions written from a rejected upload", n)
	}
}

func TestBulkUpload_ItemRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oneOption := uploadItem(1)
	oneOption.Options = []string{"4"}
	noText := uploadItem(1)
	noText.Question = ""
	blankOption := uploadItem(1)
	blankOption.Options = []string{"3", "", "5"}

	tests := []struct {
		name string
		item models.UploadQuestion
		want string
	}{
		{"zero answer", uploadItem(0), "questions[0].correctAnswer is required"},
		{"negative answer", uploadItem(-1), "questions[0].correctAnswer must be at least 1"},
		{"single option", oneOption, "questions[0].options must be at least 2"},
		{"empty question", noText, "questions[0].question is required"},
		{"blank option", blankOption, "questions[0].options[1] is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.BulkUpload(ctx, models.BulkUploadRequest{
				SubjectID: "math",
				ChapterID: "alg",
				Questions: []models.UploadQuestion{tt.item},
			})
			var ie *InputError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InputError, got %v", err)
			}
			if joined := strings.Join(ie.Details, "\n"); !strings.Contains(joined, tt.want) {
				t.Errorf("details missing %q:\n%s", tt.want, joined)
			}
		})
	}

	n, _ := f.docs.Count(ctx, models.CollectionQuestions, docstore.Filter{})
	if n != 0 {
		t.Errorf("%d invalid questions written", n)
	}
}

func TestBulkUpload_Placement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	items := []models.UploadQuestion{uploadItem(1)}

	tests := []struct {
		name string
		req  models.BulkUploadRequest
		want error
	}{
		{"unknown chapter", models.BulkUploadRequest{SubjectID: "math", ChapterID: "nope", Questions: items}, ErrNotFound},
		{"wrong subject", models.BulkUploadRequest{SubjectID: "sci", ChapterID: "alg", Questions: items}, ErrInvalidInput},
		{"unknown topic", models.BulkUploadRequest{SubjectID: "math", ChapterID: "alg", TopicID: "nope", Questions: items}, ErrNotFound},
		{"topic of other chapter", models.BulkUploadRequest{SubjectID: "math", ChapterID: "geo", TopicID: "lin", Questions: items}, ErrInvalidInput},
		{"empty batch", models.BulkUploadRequest{SubjectID: "math", ChapterID: "alg"}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.BulkUpload(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerateDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.GenerateDrafts(ctx, models.GenerateDraftsRequest{ChapterID: "alg", TopicID: "lin"})
	if err != nil {
		t.Fatalf("GenerateDrafts: %v", err)
	}
	if len(resp.Drafts) != 4 || len(resp.Scores) != 4 || resp.Model != "mock" {
		t.Fatalf("resp = %+v", resp)
	}
	if !strings.Contains(resp.Drafts[0].Question, "Linear equations") {
		t.Errorf("draft does not name the topic: %q", resp.Drafts[0].Question)
	}

	// drafts are upload-ready
	if _, err := f.svc.BulkUpload(ctx, models.BulkUploadRequest{SubjectID: "math", ChapterID: "alg", Questions: resp.Drafts}); err != nil {
		t.Errorf("uploading drafts: %v", err)
	}

	if _, err := f.svc.GenerateDrafts(ctx, models.GenerateDraftsRequest{ChapterID: "geo", TopicID: "lin"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("topic of other chapter: %v", err)
	}

	disabled := NewService(NewStore(f.docs), nil, nil, nil)
	if _, err := disabled.GenerateDrafts(ctx, models.GenerateDraftsRequest{ChapterID: "alg"}); !errors.Is(err, ErrGeneratorDisabled) {
		t.Errorf("no drafter: %v", err)
	}
}
