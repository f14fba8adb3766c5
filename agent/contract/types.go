package contract

type AgentType string

const (
	AgentTypeOrchestrator AgentType = "orchestrator"
	AgentTypeSales        AgentType = "sales"
	AgentTypeSupport      AgentType = "support"
)

type Destination string

const (
	DestinationSales   Destination = "sales"
	DestinationSupport Destination = "support"
)

type LeadKind string

const (
	LeadKindNewLead      LeadKind = "new_lead"
	LeadKindNameUpdate   LeadKind = "name_update"
	LeadKindSupportIssue LeadKind = "support_issue"
)

// ChannelMetadata identifies the messaging-provider account serving the
// conversation.
type ChannelMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// ChannelIdentity is a resolved account id. Degraded identities carry the
// fallback id and the error that caused the fallback.
type ChannelIdentity struct {
	ID       int64
	Degraded bool
	Err      error
}

type NewLead struct {
	Name        string `json:"nome" validate:"required,min=2"`
	Context     string `json:"contexto" validate:"required,min=10"`
	Tone        string `json:"tomLead" validate:"required,oneof=curioso engajado analitico decisor cetico"`
	Urgency     string `json:"urgenciaLead" validate:"required,oneof=Baixa Média Alta"`
	Instruction string `json:"instrucao" validate:"required,min=10"`
}

type NameUpdate struct {
	Name string `json:"nome" validate:"required,min=2"`
}

type SupportIssue struct {
	Name    string `json:"nome" validate:"required,min=2"`
	Problem string `json:"problema" validate:"required,min=5"`
	Stage   string `json:"etapa" validate:"required,oneof=login plataforma pagamento acesso outro"`
}

// LeadRegister is the lead payload handed to humans and to the vendor backend.
type LeadRegister struct {
	Name        string `json:"nome"`
	Email       string `json:"email,omitempty"`
	Product     string `json:"produto,omitempty"`
	Context     string `json:"contexto,omitempty"`
	Tone        string `json:"tomLead,omitempty"`
	Urgency     string `json:"urgenciaLead,omitempty"`
	Instruction string `json:"instrucao,omitempty"`
	Phone       string `json:"telefone"`
	AgentName   string `json:"nomeAgente"`
	AgentPhone  string `json:"telefoneAgente"`
	Problem     string `json:"problema,omitempty"`
	Stage       string `json:"etapa,omitempty"`
}

type Handoff struct {
	Destination   Destination
	Kind          LeadKind
	Template      string
	PhoneNumberID string
	Lead          LeadRegister
}

const (
	ToolStatusSuccess = "success"
	ToolStatusError   = "error"
)

// ToolOutcome is what the agent runtime receives from an intake tool.
type ToolOutcome struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
