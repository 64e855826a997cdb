package setup

const (
	EnvOpenAiApiKey     = "OPENAI_API_KEY"
	EnvOpenAiBaseUrl    = "OPENAI_BASE_URL"
	EnvOpenAiChatModel  = "OPENAI_CHAT_MODEL"
	EnvOpenAiImageModel = "OPENAI_IMAGE_MODEL"
	EnvPicturesDir      = "PICTURES_DIR"
	EnvBaseSaveFolder   = "BASE_SAVE_FOLDER"
	EnvDefaultHoliday   = "DEFAULT_HOLIDAY"
	EnvApiIpPort        = "API_IP_PORT"
	EnvPinataJwtKey     = "PINATA_JWT_KEY"
	EnvLogLevel         = "LOG_LEVEL"
)
