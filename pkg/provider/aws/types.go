package aws

const (
	VPC_TYPE                            = "vpc"
	SUBNET_TYPE                         = "subnet"
	INTERNET_GATEWAY_TYPE               = "internet_gateway"
	VPC_GATEWAY_ATTACHMENT_TYPE         = "vpc_gateway_attachment"
	ELASTIC_IP_TYPE                     = "elastic_ip"
	NAT_GATEWAY_TYPE                    = "nat_gateway"
	ROUTE_TABLE_TYPE                    = "route_table"
	ROUTE_TYPE                          = "route"
	SUBNET_ROUTE_TABLE_ASSOCIATION_TYPE = "subnet_route_table_association"
	SECURITY_GROUP_TYPE                 = "security_group"
	SECURITY_GROUP_INGRESS_TYPE         = "security_group_ingress"
	SECRET_TYPE                         = "secret"
	SECRET_TARGET_ATTACHMENT_TYPE       = "secret_target_attachment"
	RDS_SUBNET_GROUP_TYPE               = "rds_subnet_group"
	RDS_INSTANCE_TYPE                   = "rds_instance"
	S3_BUCKET_TYPE                      = "s3_bucket"
	S3_BUCKET_POLICY_TYPE               = "s3_bucket_policy"
	EVENT_BUS_TYPE                      = "event_bus"
	EVENT_ARCHIVE_TYPE                  = "event_archive"
	EVENT_RULE_TYPE                     = "event_rule"
	IAM_ROLE_TYPE                       = "iam_role"
	IAM_POLICY_TYPE                     = "iam_policy"
	LAMBDA_FUNCTION_TYPE                = "lambda_function"
	LAMBDA_PERMISSION_TYPE              = "lambda_permission"
	LOG_GROUP_TYPE                      = "log_group"
	CUSTOM_RESOURCE_TYPE                = "custom_resource"
	COGNITO_USER_POOL_TYPE              = "cognito_user_pool"
	COGNITO_USER_POOL_CLIENT_TYPE       = "cognito_user_pool_client"
	REST_API_TYPE                       = "rest_api"
	API_RESOURCE_TYPE                   = "api_resource"
	API_METHOD_TYPE                     = "api_method"
	API_AUTHORIZER_TYPE                 = "api_authorizer"
	API_DEPLOYMENT_TYPE                 = "api_deployment"
	API_STAGE_TYPE                      = "api_stage"
	STATE_MACHINE_TYPE                  = "state_machine"
)

// Deletion policies understood by the provisioning engine.
const (
	DeletionPolicyDelete   = "Delete"
	DeletionPolicyRetain   = "Retain"
	DeletionPolicySnapshot = "Snapshot"
)

// DeletionPolicyFor maps an environment removal policy (RETAIN or DESTROY) to a deletion policy.
func DeletionPolicyFor(removalPolicy string) string {
	if removalPolicy == "RETAIN" {
		return DeletionPolicyRetain
	}
	return DeletionPolicyDelete
}
