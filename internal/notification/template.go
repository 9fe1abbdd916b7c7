package notification

import (
	"strings"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

type TemplateID string

const (
	TemplateReceived         TemplateID = "received"
	TemplateMissingDocuments TemplateID = "missing-documents"
	TemplateUnderReview      TemplateID = "under-review"
	TemplateAwarded          TemplateID = "awarded"
	TemplateRejected         TemplateID = "rejected"
	TemplateCustom           TemplateID = "custom"
)

const (
	placeholderApplicantName     = "{applicantName}"
	placeholderCompanyName       = "{companyName}"
	placeholderTenderTitle       = "{tenderTitle}"
	placeholderApplicationNumber = "{applicationNumber}"
	placeholderCustomMessage     = "{customMessage}"

	fallbackApplicantName     = "Applicant"
	fallbackApplicationNumber = "not assigned"
)

type Template struct {
	ID             TemplateID `json:"id"`
	Name           string     `json:"name"`
	SubjectPattern string     `json:"subject_pattern"`
	BodyPattern    string     `json:"body_pattern"`
}

// RequiresCustomMessage сообщает, что шаблону нужен текст от администратора.
func (t Template) RequiresCustomMessage() bool {
	return t.ID == TemplateCustom
}

type Rendered struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

var builtinTemplates = []Template{
	{
		ID:             TemplateReceived,
		Name:           "Application received",
		SubjectPattern: "Application received: {tenderTitle}",
		BodyPattern: "Dear {applicantName},\n\n" +
			"We confirm that the application of {companyName} for the tender \"{tenderTitle}\" has been received.\n" +
			"Your application number is {applicationNumber}.\n\n" +
			"We will inform you about the next steps of the procedure.\n\n" +
			"Kind regards,\nProcurement Office",
	},
	{
		ID:             TemplateMissingDocuments,
		Name:           "Missing documents",
		SubjectPattern: "Action required: missing documents for {tenderTitle}",
		BodyPattern: "Dear {applicantName},\n\n" +
			"While checking the application {applicationNumber} of {companyName} for the tender \"{tenderTitle}\" " +
			"we found that some required documents are missing or were not accepted.\n\n" +
			"Please upload the corrected documents before the tender closing date.\n\n" +
			"Kind regards,\nProcurement Office",
	},
	{
		ID:             TemplateUnderReview,
		Name:           "Under review",
		SubjectPattern: "Your application for {tenderTitle} is under review",
		BodyPattern: "Dear {applicantName},\n\n" +
			"The application {applicationNumber} of {companyName} for the tender \"{tenderTitle}\" is now being reviewed by the evaluation committee.\n\n" +
			"No action is required from you at this stage.\n\n" +
			"Kind regards,\nProcurement Office",
	},
	{
		ID:             TemplateAwarded,
		Name:           "Contract awarded",
		SubjectPattern: "Congratulations: {tenderTitle} has been awarded to {companyName}",
		BodyPattern: "Dear {applicantName},\n\n" +
			"We are pleased to inform you that the application {applicationNumber} of {companyName} " +
			"has been selected for the tender \"{tenderTitle}\".\n\n" +
			"Our team will contact you shortly to prepare the contract.\n\n" +
			"Kind regards,\nProcurement Office",
	},
	{
		ID:             TemplateRejected,
		Name:           "Application not selected",
		SubjectPattern: "Outcome of the tender {tenderTitle}",
		BodyPattern: "Dear {applicantName},\n\n" +
			"Thank you for the interest of {companyName} in the tender \"{tenderTitle}\".\n" +
			"After careful evaluation, the application {applicationNumber} was not selected.\n\n" +
			"We encourage you to take part in our future tenders.\n\n" +
			"Kind regards,\nProcurement Office",
	},
	{
		ID:             TemplateCustom,
		Name:           "Custom message",
		SubjectPattern: "Regarding your application for {tenderTitle}",
		BodyPattern: "Dear {applicantName},\n\n" +
			"{customMessage}\n\n" +
			"Application number: {applicationNumber}\n\n" +
			"Kind regards,\nProcurement Office",
	},
}

// Renderer подставляет поля заявки в один из встроенных шаблонов.
type Renderer struct {
	templates map[TemplateID]Template
}

func NewRenderer() *Renderer {
	templates := make(map[TemplateID]Template, len(builtinTemplates))
	for _, t := range builtinTemplates {
		templates[t.ID] = t
	}
	return &Renderer{templates: templates}
}

// Templates возвращает шаблоны в фиксированном порядке.
func (r *Renderer) Templates() []Template {
	out := make([]Template, len(builtinTemplates))
	copy(out, builtinTemplates)
	return out
}

func (r *Renderer) Lookup(id string) (Template, error) {
	t, ok := r.templates[TemplateID(strings.TrimSpace(id))]
	if !ok {
		return Template{}, apperror.Newf(apperror.ErrCodeTemplateNotFound, "шаблон %q не найден", id)
	}
	return t, nil
}

// Render не падает на отсутствующих необязательных полях: вместо них подставляется
// текст по умолчанию, а пустой customMessage даёт пустой абзац.
func (r *Renderer) Render(templateID string, submission *entity.Submission, tenderTitle, customMessage string) (Rendered, error) {
	t, err := r.Lookup(templateID)
	if err != nil {
		return Rendered{}, err
	}

	replacer := strings.NewReplacer(
		placeholderApplicantName, valueOr(submission.ContactPerson, fallbackApplicantName),
		placeholderCompanyName, submission.CompanyName,
		placeholderTenderTitle, tenderTitle,
		placeholderApplicationNumber, valueOr(submission.ApplicationNumber, fallbackApplicationNumber),
		placeholderCustomMessage, strings.TrimSpace(customMessage),
	)

	return Rendered{
		Subject: replacer.Replace(t.SubjectPattern),
		Body:    replacer.Replace(t.BodyPattern),
	}, nil
}

func valueOr(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return strings.TrimSpace(*v)
}
