package i18n

type Translations struct {
	AppName                 string `json:"appName"`
	HeaderTitle             string `json:"headerTitle"`
	InputPlaceholder        string `json:"inputPlaceholder"`
	InputPlaceholderLoading string `json:"inputPlaceholderLoading"`
	SendButton              string `json:"sendButton"`
	ErrorMessageTitle       string `json:"errorMessageTitle"`
	TypingIndicator         string `json:"typingIndicator"`
	LoadingChat             string `json:"loadingChat"`
	Greeting                string `json:"greeting"`
	SystemInstruction       string `json:"systemInstruction"`
	APIKeyError             string `json:"apiKeyError"`
	InitializationFailed    string `json:"initializationFailed"`
	ChatInitializationError string `json:"chatInitializationError"`
	AIResponseError         string `json:"aiResponseError"`
	LangEnglish             string `json:"langEnglish"`
	LangHindi               string `json:"langHindi"`
	AttachImageButtonLabel  string `json:"attachImageButtonLabel"`
	ImagePreviewLabel       string `json:"imagePreviewLabel"`
	RemoveImageButtonLabel  string `json:"removeImageButtonLabel"`
	ImageAltText            string `json:"imageAltText"`
	ImageUploadError        string `json:"imageUploadError"`

	SpeechToTextButtonLabelStart  string `json:"speechToTextButtonLabelStart"`
	SpeechToTextButtonLabelStop   string `json:"speechToTextButtonLabelStop"`
	SpeechRecognitionNotSupported string `json:"speechRecognitionNotSupported"`
	MicrophonePermissionDenied    string `json:"microphonePermissionDenied"`
	SpeechRecognitionError        string `json:"speechRecognitionError"`
	NoSpeechDetected              string `json:"noSpeechDetected"`
}

var bundles = map[Language]Translations{
	EN: {
		AppName:                 "Luca AI",
		HeaderTitle:             "Luca AI Study Assistant",
		InputPlaceholder:        "Ask Luca AI anything or attach an image...",
		InputPlaceholderLoading: "Luca AI is thinking...",
		SendButton:              "Send",
		ErrorMessageTitle:       "Error:",
		TypingIndicator:         "Luca is typing...",
		LoadingChat:             "Loading chat...",
		Greeting:                "Hello! I'm Luca AI. How can I help you with your studies today? You can also ask questions about an image or use the microphone to ask.",
		SystemInstruction: `You are Luca AI, a friendly and knowledgeable study assistant.
Your primary goal is to help students with their academic questions, including those related to images they provide or questions asked via voice.
Provide clear, concise, and accurate explanations in English.
If a question is ambiguous, ask for clarification.
If a question is outside of academic topics, politely state your focus on study-related assistance.
Format your answers clearly, using markdown for lists, bolding, or italics where appropriate to improve readability.
If you are unsure about an answer, state that you are unsure rather than providing potentially incorrect information.
When an image is provided with a question, analyze the image in context of the question.`,
		APIKeyError:             "Critical Error: API Key is missing. This application cannot function without it.",
		InitializationFailed:    "Failed to initialize AI service: ",
		ChatInitializationError: "Chat session is not initialized. Cannot send message.",
		AIResponseError:         "Failed to get response from AI: ",
		LangEnglish:             "English",
		LangHindi:               "हिन्दी",
		AttachImageButtonLabel:  "Attach Image",
		ImagePreviewLabel:       "Image:",
		RemoveImageButtonLabel:  "Remove",
		ImageAltText:            "User uploaded image",
		ImageUploadError:        "Failed to load image. Please try a different one.",

		SpeechToTextButtonLabelStart:  "Start voice input",
		SpeechToTextButtonLabelStop:   "Stop voice input",
		SpeechRecognitionNotSupported: "Speech recognition is not supported by your browser.",
		MicrophonePermissionDenied:    "Microphone permission denied. Please enable it in your browser settings.",
		SpeechRecognitionError:        "Speech recognition error: ",
		NoSpeechDetected:              "No speech was detected. Please try again.",
	},
	HI: {
		AppName:                 "लूका एआई",
		HeaderTitle:             "लूका एआई स्टडी असिस्टेंट",
		InputPlaceholder:        "लूका एआई से कुछ भी पूछें या कोई छवि संलग्न करें...",
		InputPlaceholderLoading: "लूका एआई सोच रहा है...",
		SendButton:              "भेजें",
		ErrorMessageTitle:       "त्रुटि:",
		TypingIndicator:         "लूका टाइप कर रहा है...",
		LoadingChat:             "चैट लोड हो रहा है...",
		Greeting:                "नमस्ते! मैं लूका एआई हूँ। आज मैं आपकी पढ़ाई में कैसे मदद कर सकता हूँ? आप किसी छवि के बारे में भी प्रश्न पूछ सकते हैं या पूछने के लिए माइक्रोफ़ोन का उपयोग कर सकते हैं।",
		SystemInstruction: `आप लूका एआई हैं, एक मैत्रीपूर्ण और जानकार अध्ययन सहायक।
आपका प्राथमिक लक्ष्य छात्रों को उनके शैक्षणिक प्रश्नों में मदद करना है, जिसमें उनके द्वारा प्रदान की गई छवियों से संबंधित प्रश्न या आवाज द्वारा पूछे गए प्रश्न भी शामिल हैं।
स्पष्ट, संक्षिप्त और सटीक स्पष्टीकरण हिंदी में प्रदान करें।
यदि कोई प्रश्न अस्पष्ट है, तो स्पष्टीकरण मांगें।
यदि कोई प्रश्न शैक्षणिक विषयों से बाहर है, तो विनम्रतापूर्वक अध्ययन-संबंधी सहायता पर अपना ध्यान केंद्रित करें।
पठनीयता में सुधार के लिए जहां उपयुक्त हो, सूचियों, बोल्डिंग या इटैलिक के लिए मार्कडाउन का उपयोग करके अपने उत्तरों को स्पष्ट रूप से प्रारूपित करें।
यदि आप किसी उत्तर के बारे में अनिश्चित हैं, तो संभावित रूप से गलत जानकारी प्रदान करने के बजाय यह बताएं कि आप अनिश्चित हैं।
जब किसी प्रश्न के साथ कोई छवि प्रदान की जाती है, तो प्रश्न के संदर्भ में छवि का विश्लेषण करें।`,
		APIKeyError:             "गंभीर त्रुटि: एपीआई कुंजी गायब है। यह एप्लिकेशन इसके बिना कार्य नहीं कर सकता।",
		InitializationFailed:    "एआई सेवा प्रारंभ करने में विफल: ",
		ChatInitializationError: "चैट सत्र प्रारंभ नहीं हुआ है। संदेश नहीं भेजा जा सकता।",
		AIResponseError:         "एआई से प्रतिक्रिया प्राप्त करने में विफल: ",
		LangEnglish:             "English",
		LangHindi:               "हिन्दी",
		AttachImageButtonLabel:  "छवि संलग्न करें",
		ImagePreviewLabel:       "छवि:",
		RemoveImageButtonLabel:  "हटाएँ",
		ImageAltText:            "उपयोगकर्ता द्वारा अपलोड की गई छवि",
		ImageUploadError:        "छवि लोड करने में विफल। कृपया कोई दूसरी छवि आज़माएँ।",

		SpeechToTextButtonLabelStart:  "वॉयस इनपुट प्रारंभ करें",
		SpeechToTextButtonLabelStop:   "वॉयस इनपुट रोकें",
		SpeechRecognitionNotSupported: "आपका ब्राउज़र वाक् पहचान का समर्थन नहीं करता है।",
		MicrophonePermissionDenied:    "माइक्रोफ़ोन अनुमति अस्वीकृत। कृपया इसे अपनी ब्राउज़र सेटिंग्स में सक्षम करें।",
		SpeechRecognitionError:        "वाक् पहचान त्रुटि: ",
		NoSpeechDetected:              "कोई भाषण नहीं मिला। कृपया पुनः प्रयास करें।",
	},
}
