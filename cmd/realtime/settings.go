package main

type Settings struct {
	Port               int      `env:"PORT,default=8000"`
	BasePath           string   `env:"BASE_PATH,default=/realtime"`
	JWTSecret          string   `env:"JWT_SECRET,required=true"`
	APIKeys            []string `env:"API_KEYS"`
	AllowedOrigins     []string `env:"ALLOWED_ORIGINS"`
	MongoURI           string   `env:"MONGO_URI"`
	LogEncoding        string   `env:"LOG_ENCODING,default=console"`
	RoomSweepIntervalS int      `env:"ROOM_SWEEP_INTERVAL_SECONDS,default=300"`
}
