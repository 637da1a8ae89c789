package spec

import "time"

// Family identifies the resource family a Spec belongs to.
type Family string

const (
	// FamilyQueue is a message queue resource (SQS-style).
	FamilyQueue Family = "queue"

	// FamilyTopic is a pub/sub topic resource (SNS-style).
	FamilyTopic Family = "topic"

	// FamilyBucket is an object storage bucket resource (S3-style).
	FamilyBucket Family = "bucket"

	// FamilyKey is an encryption key resource (KMS-style).
	FamilyKey Family = "key"

	// FamilyRecord is a DNS record resource (Route53-style).
	FamilyRecord Family = "record"

	// FamilyRole is an identity role resource (IAM-style).
	FamilyRole Family = "role"
)

// RemovalPolicy controls what happens to a resource when its stack is deleted.
type RemovalPolicy string

const (
	// RemovalRetain keeps the underlying resource on stack deletion.
	RemovalRetain RemovalPolicy = "retain"

	// RemovalDestroy deletes the underlying resource on stack deletion.
	RemovalDestroy RemovalPolicy = "destroy"
)

// FailoverRole identifies a record's role in a failover routing pair.
type FailoverRole string

const (
	// FailoverPrimary receives traffic while healthy.
	FailoverPrimary FailoverRole = "PRIMARY"

	// FailoverSecondary receives traffic when the primary is unhealthy.
	FailoverSecondary FailoverRole = "SECONDARY"
)

// ServiceCapability names a cloud service principal that may be granted
// access to a shared encryption key. The set is closed: adding a grantable
// principal is a compile-time change, never a free-form string.
type ServiceCapability string

const (
	// CapabilityQueue grants the queue service use of the key.
	CapabilityQueue ServiceCapability = "queue-service"

	// CapabilityNotification grants the notification service use of the key.
	CapabilityNotification ServiceCapability = "notification-service"

	// CapabilityCompute grants the compute service use of the key.
	CapabilityCompute ServiceCapability = "compute-service"

	// CapabilityStorage grants the storage service use of the key.
	CapabilityStorage ServiceCapability = "storage-service"
)

// Statement is a caller-supplied extra policy statement attached verbatim to
// a resource's access policy.
type Statement struct {
	// Effect is "Allow" or "Deny".
	Effect string `json:"effect" yaml:"effect" validate:"required,oneof=Allow Deny"`

	// Actions lists the actions this statement covers.
	Actions []string `json:"actions" yaml:"actions" validate:"required,min=1"`

	// Resources lists the resource identifiers this statement covers.
	Resources []string `json:"resources,omitempty" yaml:"resources,omitempty"`

	// Principals lists the principals this statement applies to.
	Principals []string `json:"principals,omitempty" yaml:"principals,omitempty"`
}

// Spec is a caller-authored, immutable description of a desired resource.
// Concrete specs are one of the per-family option structs in this package.
type Spec interface {
	// Family returns the resource family this spec describes.
	Family() Family

	// ID returns the logical identifier chosen by the caller.
	ID() string
}

// Common holds the fields every resource family shares. Optional fields are
// pointers so "unset" is distinguishable from an explicit zero value.
type Common struct {
	// LogicalID is the construct's logical identifier within its stack.
	LogicalID string `json:"logical_id" yaml:"logical_id" validate:"required,max=64,resourceid"`

	// RemovalPolicy overrides the environment-derived lifecycle default.
	RemovalPolicy *RemovalPolicy `json:"removal_policy,omitempty" yaml:"removal_policy,omitempty"`

	// Tags are caller-supplied tags stamped onto every produced node.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ID returns the logical identifier.
func (c Common) ID() string { return c.LogicalID }

// QueueSpec describes a message queue and its optional dead-letter companion.
type QueueSpec struct {
	Common `yaml:",inline"`

	// EncryptionKeyRef is the shared encryption key the queue must use.
	// Required: queues are never created unencrypted.
	EncryptionKeyRef string `json:"encryption_key_ref" yaml:"encryption_key_ref" validate:"required"`

	// QueueName overrides the physical queue name.
	QueueName *string `json:"queue_name,omitempty" yaml:"queue_name,omitempty"`

	// RetentionPeriod is how long undelivered messages are kept.
	RetentionPeriod *time.Duration `json:"retention_period,omitempty" yaml:"retention_period,omitempty"`

	// VisibilityTimeout is the in-flight message visibility window.
	VisibilityTimeout *time.Duration `json:"visibility_timeout,omitempty" yaml:"visibility_timeout,omitempty"`

	// Fifo enables first-in-first-out delivery semantics.
	Fifo *bool `json:"fifo,omitempty" yaml:"fifo,omitempty"`

	// ContentBasedDeduplication enables content hashing for dedup.
	// Only legal when Fifo is true.
	ContentBasedDeduplication *bool `json:"content_based_deduplication,omitempty" yaml:"content_based_deduplication,omitempty"`

	// EnableDeadLetterQueue requests a companion dead-letter queue.
	EnableDeadLetterQueue *bool `json:"enable_dead_letter_queue,omitempty" yaml:"enable_dead_letter_queue,omitempty"`

	// MaxReceiveCount is the redrive threshold before messages move to the
	// dead-letter queue. Only legal when EnableDeadLetterQueue is true.
	MaxReceiveCount *int `json:"max_receive_count,omitempty" yaml:"max_receive_count,omitempty"`

	// ExtraStatements are additional access policy statements (at most 10).
	ExtraStatements []Statement `json:"extra_statements,omitempty" yaml:"extra_statements,omitempty" validate:"max=10,dive"`
}

// Family implements Spec.
func (QueueSpec) Family() Family { return FamilyQueue }

// TopicSpec describes a pub/sub topic.
type TopicSpec struct {
	Common `yaml:",inline"`

	// EncryptionKeyRef is the shared encryption key the topic must use.
	EncryptionKeyRef string `json:"encryption_key_ref" yaml:"encryption_key_ref" validate:"required"`

	// TopicName overrides the physical topic name.
	TopicName *string `json:"topic_name,omitempty" yaml:"topic_name,omitempty"`

	// DisplayName is the human-facing topic title.
	DisplayName *string `json:"display_name,omitempty" yaml:"display_name,omitempty"`

	// Fifo enables first-in-first-out delivery semantics.
	Fifo *bool `json:"fifo,omitempty" yaml:"fifo,omitempty"`

	// ContentBasedDeduplication enables content hashing for dedup.
	// Only legal when Fifo is true.
	ContentBasedDeduplication *bool `json:"content_based_deduplication,omitempty" yaml:"content_based_deduplication,omitempty"`

	// DeliveryStatusRoleRef names the role used for delivery status
	// logging. Unset disables delivery status logging.
	DeliveryStatusRoleRef *string `json:"delivery_status_role_ref,omitempty" yaml:"delivery_status_role_ref,omitempty"`

	// ExtraStatements are additional access policy statements (at most 10).
	ExtraStatements []Statement `json:"extra_statements,omitempty" yaml:"extra_statements,omitempty" validate:"max=10,dive"`
}

// Family implements Spec.
func (TopicSpec) Family() Family { return FamilyTopic }

// BucketSpec describes an object storage bucket.
type BucketSpec struct {
	Common `yaml:",inline"`

	// EncryptionKeyRef is the shared encryption key the bucket must use.
	EncryptionKeyRef string `json:"encryption_key_ref" yaml:"encryption_key_ref" validate:"required"`

	// BucketName overrides the physical bucket name.
	BucketName *string `json:"bucket_name,omitempty" yaml:"bucket_name,omitempty"`

	// Versioned enables object versioning. Defaults on in production.
	Versioned *bool `json:"versioned,omitempty" yaml:"versioned,omitempty"`

	// ExpireAfter adds a lifecycle rule expiring objects after the window.
	ExpireAfter *time.Duration `json:"expire_after,omitempty" yaml:"expire_after,omitempty"`

	// ExtraStatements are additional access policy statements (at most 10).
	ExtraStatements []Statement `json:"extra_statements,omitempty" yaml:"extra_statements,omitempty" validate:"max=10,dive"`
}

// Family implements Spec.
func (BucketSpec) Family() Family { return FamilyBucket }

// KeySpec describes a shared encryption key and the service principals that
// may use it.
type KeySpec struct {
	Common `yaml:",inline"`

	// Alias overrides the default alias (the lowercased logical ID).
	// Must never sit inside the reserved "alias/aws/" namespace.
	Alias *string `json:"alias,omitempty" yaml:"alias,omitempty"`

	// Description documents the key's purpose.
	Description *string `json:"description,omitempty" yaml:"description,omitempty" validate:"omitempty,max=8192"`

	// EnableRotation turns on automatic key rotation. Defaults on in
	// production.
	EnableRotation *bool `json:"enable_rotation,omitempty" yaml:"enable_rotation,omitempty"`

	// Capabilities lists the service principals granted use of the key.
	Capabilities []ServiceCapability `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`

	// ExtraStatements are additional key policy statements (at most 10).
	ExtraStatements []Statement `json:"extra_statements,omitempty" yaml:"extra_statements,omitempty" validate:"max=10,dive"`
}

// Family implements Spec.
func (KeySpec) Family() Family { return FamilyKey }

// RecordSpec describes a DNS record and its routing behavior. At most one
// routing dimension (weighted, failover, geolocation, latency) may be set.
type RecordSpec struct {
	Common `yaml:",inline"`

	// ZoneName is the hosted zone the record lives in.
	ZoneName string `json:"zone_name" yaml:"zone_name" validate:"required"`

	// RecordName is the record's name within the zone.
	RecordName string `json:"record_name" yaml:"record_name" validate:"required"`

	// RecordType is the DNS record type (A, AAAA, CNAME, TXT, ...).
	RecordType string `json:"record_type" yaml:"record_type" validate:"required,oneof=A AAAA CNAME TXT MX NS SRV"`

	// Target is the record's routing destination (an IP, hostname, or
	// alias target domain depending on RecordType).
	Target string `json:"target" yaml:"target" validate:"required"`

	// TTL is the record's time-to-live.
	TTL *time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`

	// Weight selects weighted routing. Must be within [0, 255].
	Weight *int `json:"weight,omitempty" yaml:"weight,omitempty"`

	// Failover selects failover routing with the given role.
	Failover *FailoverRole `json:"failover,omitempty" yaml:"failover,omitempty"`

	// ContinentCode selects geolocation routing at continent granularity.
	ContinentCode *string `json:"continent_code,omitempty" yaml:"continent_code,omitempty"`

	// CountryCode selects geolocation routing at country granularity.
	CountryCode *string `json:"country_code,omitempty" yaml:"country_code,omitempty"`

	// SubdivisionCode refines CountryCode to subdivision granularity.
	SubdivisionCode *string `json:"subdivision_code,omitempty" yaml:"subdivision_code,omitempty"`

	// Region selects latency-based routing toward the given region.
	Region *string `json:"region,omitempty" yaml:"region,omitempty"`

	// SetIdentifier distinguishes records sharing a name under any
	// non-simple routing mode. Required whenever one is selected.
	SetIdentifier *string `json:"set_identifier,omitempty" yaml:"set_identifier,omitempty"`
}

// Family implements Spec.
func (RecordSpec) Family() Family { return FamilyRecord }

// RoleSpec describes an identity role.
type RoleSpec struct {
	Common `yaml:",inline"`

	// RoleName overrides the physical role name.
	RoleName *string `json:"role_name,omitempty" yaml:"role_name,omitempty" validate:"omitempty,max=64,resourceid"`

	// Description documents the role's purpose.
	Description *string `json:"description,omitempty" yaml:"description,omitempty" validate:"omitempty,max=8192"`

	// AssumedBy is the service principal allowed to assume the role.
	AssumedBy string `json:"assumed_by" yaml:"assumed_by" validate:"required"`

	// MaxSessionDuration bounds assumed sessions (1h to 12h).
	MaxSessionDuration *time.Duration `json:"max_session_duration,omitempty" yaml:"max_session_duration,omitempty"`

	// InlineStatements are inline policy statements (at most 10).
	InlineStatements []Statement `json:"inline_statements,omitempty" yaml:"inline_statements,omitempty" validate:"max=10,dive"`
}

// Family implements Spec.
func (RoleSpec) Family() Family { return FamilyRole }

// Bool returns a pointer to v. Convenience for building specs.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v. Convenience for building specs.
func Int(v int) *int { return &v }

// String returns a pointer to v. Convenience for building specs.
func String(v string) *string { return &v }

// Duration returns a pointer to v. Convenience for building specs.
func Duration(v time.Duration) *time.Duration { return &v }

// Removal returns a pointer to v. Convenience for building specs.
func Removal(v RemovalPolicy) *RemovalPolicy { return &v }

// Role returns a pointer to v. Convenience for building specs.
func Role(v FailoverRole) *FailoverRole { return &v }
