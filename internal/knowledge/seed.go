package knowledge

// SeedDocuments is the fixed cybersecurity reference corpus used as
// ground truth for retrieval-augmented runs.
func SeedDocuments() []Document {
	return []Document{
		{
			ID:       "sql-injection",
			Topic:    "sql_injection",
			Category: "web_security",
			Text: "SQL Injection is a code injection technique that exploits vulnerabilities " +
				"in an application's database layer. Attackers insert malicious SQL code into input " +
				"fields, which is then executed by the database. Prevention methods include using " +
				"parameterized queries, input validation, and stored procedures. SQL injection is " +
				"part of the OWASP Top 10 most critical web application security risks.",
		},
		{
			ID:       "cia-triad",
			Topic:    "cia_triad",
			Category: "fundamentals",
			Text: "The CIA Triad is a fundamental model in information security consisting " +
				"of three principles: Confidentiality (protecting information from unauthorized access), " +
				"Integrity (ensuring information accuracy and completeness), and Availability (ensuring " +
				"authorized users have access when needed). This model guides security policies and " +
				"implementations.",
		},
		{
			ID:       "log4shell",
			Topic:    "log4shell",
			Category: "vulnerabilities",
			Text: "CVE-2021-44228, known as Log4Shell, is a critical remote code execution " +
				"vulnerability in Apache Log4j 2. It has a CVSS score of 10.0 (Critical). The vulnerability " +
				"allows attackers to execute arbitrary code by exploiting the JNDI lookup feature. " +
				"It was discovered in December 2021 and affected millions of systems worldwide.",
		},
		{
			ID:       "encryption",
			Topic:    "encryption",
			Category: "cryptography",
			Text: "AES (Advanced Encryption Standard) is a symmetric encryption algorithm " +
				"adopted by NIST in 2001. AES-256 uses a 256-bit key and is considered secure against " +
				"brute-force attacks. ChaCha20 is a stream cipher alternative to AES, offering similar " +
				"security with better performance on devices without AES hardware acceleration.",
		},
		{
			ID:       "xss",
			Topic:    "xss",
			Category: "web_security",
			Text: "Cross-Site Scripting (XSS) allows attackers to inject malicious scripts " +
				"into web pages viewed by other users. There are three types: Reflected XSS (non-persistent), " +
				"Stored XSS (persistent), and DOM-based XSS. Prevention includes input validation, " +
				"output encoding, and Content Security Policy (CSP) headers.",
		},
		{
			ID:       "metasploit",
			Topic:    "metasploit",
			Category: "tools",
			Text: "Metasploit is a penetration testing framework developed by Rapid7. " +
				"First released in 2003 by H.D. Moore, it provides tools for discovering vulnerabilities, " +
				"developing exploits, and conducting security assessments. It includes hundreds of " +
				"exploit modules and auxiliary tools.",
		},
		{
			ID:       "owasp-top-10",
			Topic:    "owasp_top_10",
			Category: "standards",
			Text: "The OWASP Top 10 is a standard awareness document for web application " +
				"security. The 2021 edition includes: 1) Broken Access Control, 2) Cryptographic Failures, " +
				"3) Injection, 4) Insecure Design, 5) Security Misconfiguration, 6) Vulnerable and " +
				"Outdated Components, 7) Identification and Authentication Failures, 8) Software and " +
				"Data Integrity Failures, 9) Security Logging and Monitoring Failures, 10) Server-Side " +
				"Request Forgery (SSRF).",
		},
		{
			ID:       "firewall",
			Topic:    "firewall",
			Category: "network_security",
			Text: "A firewall is a network security device that monitors and controls incoming " +
				"and outgoing network traffic based on predetermined security rules. Firewalls can be " +
				"hardware-based, software-based, or both. They establish a barrier between trusted " +
				"internal networks and untrusted external networks.",
		},
		{
			ID:       "pki",
			Topic:    "pki",
			Category: "cryptography",
			Text: "Public Key Infrastructure (PKI) uses asymmetric cryptography with public " +
				"and private key pairs. The public key encrypts data, while only the corresponding " +
				"private key can decrypt it. Common algorithms include RSA, ECC (Elliptic Curve Cryptography), " +
				"and DSA. PKI is fundamental to SSL/TLS certificates and digital signatures.",
		},
		{
			ID:       "ids",
			Topic:    "ids",
			Category: "tools",
			Text: "Snort and Suricata are both open-source intrusion detection systems (IDS). " +
				"Snort, created in 1998, uses signature-based detection. Suricata, released in 2009, " +
				"offers multi-threading and hardware acceleration. Both can operate in IDS and IPS " +
				"(intrusion prevention) modes and use similar rule syntaxes.",
		},
		{
			ID:       "https",
			Topic:    "https",
			Category: "network_security",
			Text: "HTTPS (Hypertext Transfer Protocol Secure) is HTTP with encryption using " +
				"TLS/SSL. It ensures confidentiality, integrity, and authentication of web communications. " +
				"HTTPS uses port 443 by default, compared to HTTP's port 80. Modern browsers mark " +
				"HTTP sites as \"Not Secure\".",
		},
		{
			ID:       "zero-day",
			Topic:    "zero_day",
			Category: "vulnerabilities",
			Text: "Zero-day vulnerabilities are security flaws unknown to the software vendor. " +
				"Attackers exploit these vulnerabilities before patches are available. The term \"zero-day\" " +
				"refers to zero days between discovery and exploit. These are highly valuable in both " +
				"legitimate security research and criminal markets.",
		},
		{
			ID:       "mfa",
			Topic:    "mfa",
			Category: "authentication",
			Text: "Multi-Factor Authentication (MFA) requires two or more verification factors: " +
				"something you know (password), something you have (token/phone), and something you are " +
				"(biometrics). MFA significantly reduces the risk of unauthorized access even if passwords " +
				"are compromised.",
		},
		{
			ID:       "timing-attack",
			Topic:    "timing_attack",
			Category: "cryptographic_attacks",
			Text: "A timing attack is a side-channel attack that exploits variations in " +
				"execution time. Against RSA, attackers can analyze decryption times to deduce private " +
				"key information. Countermeasures include constant-time implementations and blinding " +
				"techniques.",
		},
		{
			ID:       "padding-oracle",
			Topic:    "padding_oracle",
			Category: "cryptographic_attacks",
			Text: "A padding oracle attack exploits the error messages from padding validation " +
				"in block cipher modes like CBC. The POODLE attack (2014) used this technique against " +
				"SSL 3.0. Prevention includes using authenticated encryption modes like GCM or removing " +
				"padding error messages.",
		},
	}
}
